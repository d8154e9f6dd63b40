package nli

import (
	"fmt"

	"github.com/faithgate/faithgate/internal/model"
)

// Config holds entailment backend configuration.
type Config struct {
	// Provider name: "inference", "openai", "lexical"
	Provider string

	// Model is the entailment model identifier
	Model string

	// BaseURL of the inference server, or a custom OpenAI-compatible
	// endpoint for the openai provider
	BaseURL string

	// APIKey for the openai provider
	APIKey string

	// Timeout for scoring requests, in seconds
	Timeout int

	// Labels maps raw output channel indices to semantic labels.
	// This differs across models and model-library versions; verify
	// against the model card before changing Model.
	Labels model.LabelOrder

	// Rate limiting for HTTP backends
	RequestsPerSecond float64
	Burst             int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// FromModel converts model.NLIConfig plus rate limits to nli.Config.
func FromModel(c model.NLIConfig, rl model.RateLimitConfig) Config {
	return Config{
		Provider:          c.Provider,
		Model:             c.Model,
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		Timeout:           c.Timeout,
		Labels:            c.Labels,
		RequestsPerSecond: rl.RequestsPerSecond,
		Burst:             rl.Burst,
		HTTPProxy:         c.HTTPProxy,
		HTTPSProxy:        c.HTTPSProxy,
		NoProxy:           c.NoProxy,
	}
}

// validateLabels checks that a label order names each of the three
// output channels exactly once.
func validateLabels(l model.LabelOrder) error {
	seen := [3]bool{}
	for _, idx := range []int{l.Contradiction, l.Entailment, l.Neutral} {
		if idx < 0 || idx > 2 {
			return fmt.Errorf("label index %d out of range [0,2]", idx)
		}
		if seen[idx] {
			return fmt.Errorf("label index %d assigned twice", idx)
		}
		seen[idx] = true
	}
	return nil
}
