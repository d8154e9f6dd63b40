package model

import "time"

// Config is the complete faithgate configuration.
//
// Hierarchy (highest to lowest priority):
//  1. CLI flags
//  2. Environment variables (FAITHGATE_*)
//  3. Config file (~/.faithgate/config.yaml)
//  4. Defaults
type Config struct {
	NLI          NLIConfig       `yaml:"nli" mapstructure:"nli"`
	Gate         GateConfig      `yaml:"gate" mapstructure:"gate"`
	Cache        CacheConfig     `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig    `yaml:"output" mapstructure:"output"`
}

// NLIConfig configures the entailment scorer backend.
//
// Changing Model changes score semantics for every subsequent
// evaluation; callers should record it alongside logged verdicts.
type NLIConfig struct {
	// Provider selects the backend: "inference", "openai", "lexical"
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model is the entailment model identifier (provider-specific)
	Model string `yaml:"model" mapstructure:"model"`

	// BaseURL of the inference server (inference provider) or a
	// custom OpenAI-compatible endpoint
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// APIKey for the openai provider
	APIKey string `yaml:"-" mapstructure:"api_key"`

	// Timeout for scoring requests, in seconds
	Timeout int `yaml:"timeout" mapstructure:"timeout"`

	// Labels maps the model's raw output channels to semantic labels.
	// The order differs across models and model-library versions, so
	// it is per-model configuration, never a universal constant.
	Labels LabelOrder `yaml:"labels" mapstructure:"labels"`

	// Serialize forces single-flight inference for backends whose
	// underlying call is not reentrant
	Serialize bool `yaml:"serialize" mapstructure:"serialize"`

	// Proxy settings for HTTP backends
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LabelOrder maps NLI output channel indices to semantic labels.
type LabelOrder struct {
	Contradiction int `yaml:"contradiction" mapstructure:"contradiction"`
	Entailment    int `yaml:"entailment" mapstructure:"entailment"`
	Neutral       int `yaml:"neutral" mapstructure:"neutral"`
}

// DefaultLabelOrder is the documented channel order of
// cross-encoder/nli-deberta-v3-small. Verify against the model card
// before pointing faithgate at a different model.
func DefaultLabelOrder() LabelOrder {
	return LabelOrder{Contradiction: 0, Entailment: 1, Neutral: 2}
}

// GateConfig configures evaluation behavior.
type GateConfig struct {
	// Threshold below which a claim is flagged and an answer fails
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`

	// MinClaimLength filters out fragments shorter than this many
	// characters after trimming (list markers, "OK.", etc.)
	MinClaimLength int `yaml:"min_claim_length" mapstructure:"min_claim_length"`

	// Workers bounds concurrent claim scoring within one evaluation.
	// 1 means sequential; output order is preserved either way.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig configures the pair-score cache. Caching is sound
// because the scorer contract is deterministic for a fixed model.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig bounds request rate against the inference backend.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// OutputConfig controls CLI output behavior.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		NLI: NLIConfig{
			Provider: "inference",
			Model:    "cross-encoder/nli-deberta-v3-small",
			BaseURL:  "http://localhost:8093",
			Timeout:  30,
			Labels:   DefaultLabelOrder(),
		},
		Gate: GateConfig{
			Threshold:      0.5,
			MinClaimLength: 10,
			Workers:        1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             5,
		},
	}
}
