package nli

import (
	"context"
	"strings"
	"unicode"

	"github.com/faithgate/faithgate/internal/model"
)

// LexicalScorer approximates entailment by token coverage: the
// fraction of hypothesis tokens that appear in the premise. It is
// fully deterministic and needs no model or network, which makes it
// useful for smoke tests, CI, and cmd/mock-nli. It is NOT a
// substitute for a real NLI model in production.
type LexicalScorer struct {
	modelName string
}

// NewLexicalScorer creates a lexical overlap scorer.
func NewLexicalScorer(modelName string) *LexicalScorer {
	if modelName == "" {
		modelName = "lexical-overlap"
	}
	return &LexicalScorer{modelName: modelName}
}

// Name returns the backend name.
func (s *LexicalScorer) Name() string {
	return "lexical"
}

// Model returns the heuristic identifier.
func (s *LexicalScorer) Model() string {
	return s.modelName
}

// Score computes coverage-based distributions for every pair.
func (s *LexicalScorer) Score(_ context.Context, pairs []Pair) ([]model.PairScore, error) {
	scores := make([]model.PairScore, len(pairs))
	for i, p := range pairs {
		scores[i] = lexicalScore(p.Premise, p.Hypothesis)
	}
	return scores, nil
}

// lexicalScore maps token coverage onto a probability triple.
// Coverage 1 gives entailment 0.95, coverage 0 gives 0.05, so the
// output never claims certainty the heuristic cannot justify.
func lexicalScore(premise, hypothesis string) model.PairScore {
	premiseTokens := make(map[string]bool)
	for _, tok := range tokenize(premise) {
		premiseTokens[tok] = true
	}

	hypTokens := tokenize(hypothesis)
	if len(hypTokens) == 0 {
		return model.PairScore{Contradiction: 0.05, Neutral: 0.90, Entailment: 0.05}
	}

	matched := 0
	for _, tok := range hypTokens {
		if premiseTokens[tok] {
			matched++
		}
	}
	coverage := float64(matched) / float64(len(hypTokens))

	entailment := 0.05 + 0.90*coverage
	contradiction := 0.05 * (1 - coverage)
	return model.PairScore{
		Contradiction: contradiction,
		Neutral:       1 - entailment - contradiction,
		Entailment:    entailment,
	}
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// tokens shorter than 3 characters so articles and punctuation noise
// do not count as support.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
