package nli

import (
	"fmt"
	"strings"
)

// NewScorer creates an entailment scorer from configuration.
//
// Construction fails fast on invalid configuration; a gate is never
// built around a partially-initialized scorer.
func NewScorer(config Config) (Scorer, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "inference", "hf", "local":
		return NewInferenceScorer(config)

	case "openai":
		return NewOpenAIScorer(config)

	case "lexical":
		return NewLexicalScorer(config.Model), nil

	default:
		return nil, fmt.Errorf("unknown NLI provider: %q (supported: inference, openai, lexical)", config.Provider)
	}
}
