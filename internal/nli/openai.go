package nli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/faithgate/faithgate/internal/model"
)

// OpenAIScorer judges entailment with a chat model instead of a
// dedicated NLI cross-encoder. It exists for environments without a
// local inference server. Chat models are not bit-deterministic even
// at temperature 0, so this backend weakens the gate's determinism
// guarantee; prefer the inference provider when reproducibility
// matters.
type OpenAIScorer struct {
	client    *openai.Client
	modelName string
	timeout   time.Duration
}

const openaiJudgeSystem = `You are a natural language inference classifier.
For each (premise, hypothesis) pair you receive, decide whether the premise
entails, contradicts, or is neutral toward the hypothesis, and output
probabilities for the three labels.

Respond with JSON only, of the form:
{"scores": [{"contradiction": 0.0, "neutral": 0.1, "entailment": 0.9}, ...]}

Output exactly one score object per input pair, in input order. The three
probabilities of each object must sum to 1.`

type openaiJudgeResponse struct {
	Scores []model.PairScore `json:"scores"`
}

// NewOpenAIScorer creates an LLM-judge scorer.
func NewOpenAIScorer(config Config) (*OpenAIScorer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	modelName := config.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIScorer{
		client:    openai.NewClientWithConfig(clientConfig),
		modelName: modelName,
		timeout:   timeout,
	}, nil
}

// Name returns the backend name.
func (s *OpenAIScorer) Name() string {
	return "openai"
}

// Model returns the judge model identifier.
func (s *OpenAIScorer) Model() string {
	return s.modelName
}

// Score sends the whole batch in one chat completion.
func (s *OpenAIScorer) Score(ctx context.Context, pairs []Pair) ([]model.PairScore, error) {
	if len(pairs) == 0 {
		return []model.PairScore{}, nil
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Score these %d pairs:\n", len(pairs))
	for i, p := range pairs {
		fmt.Fprintf(&prompt, "\nPair %d:\nPremise: %s\nHypothesis: %s\n", i+1, p.Premise, p.Hypothesis)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: s.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openaiJudgeSystem},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := s.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%w: OpenAI API: %w", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response from OpenAI", ErrUnavailable)
	}

	var judged openaiJudgeResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &judged); err != nil {
		return nil, fmt.Errorf("%w: unmarshal judge response: %w", ErrUnavailable, err)
	}
	if len(judged.Scores) != len(pairs) {
		return nil, fmt.Errorf("%w: got %d scores for %d pairs", ErrUnavailable, len(judged.Scores), len(pairs))
	}

	scores := make([]model.PairScore, len(pairs))
	for i, sc := range judged.Scores {
		scores[i] = normalize(sc)
		if err := checkDistribution(scores[i]); err != nil {
			return nil, fmt.Errorf("%w: pair %d: %w", ErrUnavailable, i, err)
		}
	}

	return scores, nil
}

// normalize rescales a roughly-correct triple so it sums to 1. Chat
// models often return triples that are off by a few percent.
func normalize(s model.PairScore) model.PairScore {
	sum := s.Contradiction + s.Neutral + s.Entailment
	if sum <= 0 {
		return s
	}
	return model.PairScore{
		Contradiction: s.Contradiction / sum,
		Neutral:       s.Neutral / sum,
		Entailment:    s.Entailment / sum,
	}
}
