package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/faithgate/faithgate/internal/model"
)

func newProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// InferenceScorer scores pairs against a local NLI inference server
// (a cross-encoder model behind a small HTTP wrapper). The server
// returns raw softmax probabilities in the model's own channel order;
// the configured label order maps channels to semantic labels.
type InferenceScorer struct {
	baseURL    string
	modelName  string
	labels     model.LabelOrder
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Inference server API structures
type inferenceRequest struct {
	Model string          `json:"model"`
	Pairs []inferencePair `json:"pairs"`
}

type inferencePair struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

type inferenceResponse struct {
	Model string `json:"model"`

	// Probabilities holds one triple per pair, in the model's raw
	// output channel order
	Probabilities [][]float64 `json:"probabilities"`
}

type inferenceError struct {
	Error string `json:"error"`
}

// NewInferenceScorer creates an inference-server scorer.
func NewInferenceScorer(config Config) (*InferenceScorer, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("entailment model identifier is required")
	}
	if err := validateLabels(config.Labels); err != nil {
		return nil, fmt.Errorf("label order for model %s: %w", config.Model, err)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8093"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid inference server URL %q: %w", baseURL, err)
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 5
	}

	return &InferenceScorer{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		modelName: config.Model,
		labels:    config.Labels,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: newProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// Name returns the backend name.
func (s *InferenceScorer) Name() string {
	return "inference"
}

// Model returns the entailment model identifier.
func (s *InferenceScorer) Model() string {
	return s.modelName
}

// Ping checks whether the inference server is reachable.
func (s *InferenceScorer) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Score sends one batched request and maps the raw channel order to
// semantic labels.
func (s *InferenceScorer) Score(ctx context.Context, pairs []Pair) ([]model.PairScore, error) {
	if len(pairs) == 0 {
		return []model.PairScore{}, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrUnavailable, err)
	}

	apiReq := inferenceRequest{
		Model: s.modelName,
		Pairs: make([]inferencePair, len(pairs)),
	}
	for i, p := range pairs {
		apiReq.Pairs[i] = inferencePair{Premise: p.Premise, Hypothesis: p.Hypothesis}
	}

	resp, err := s.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if len(resp.Probabilities) != len(pairs) {
		return nil, fmt.Errorf("%w: got %d distributions for %d pairs", ErrUnavailable, len(resp.Probabilities), len(pairs))
	}

	scores := make([]model.PairScore, len(pairs))
	for i, probs := range resp.Probabilities {
		if len(probs) != 3 {
			return nil, fmt.Errorf("%w: pair %d: got %d channels, want 3", ErrUnavailable, i, len(probs))
		}
		scores[i] = model.PairScore{
			Contradiction: probs[s.labels.Contradiction],
			Entailment:    probs[s.labels.Entailment],
			Neutral:       probs[s.labels.Neutral],
		}
		if err := checkDistribution(scores[i]); err != nil {
			return nil, fmt.Errorf("%w: pair %d: %w", ErrUnavailable, i, err)
		}
	}

	return scores, nil
}

// makeRequest makes an HTTP request to the inference server.
func (s *InferenceScorer) makeRequest(ctx context.Context, apiReq inferenceRequest) (*inferenceResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := s.baseURL + "/v1/entailment"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr inferenceError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp inferenceResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &resp, nil
}
