package completion

import (
	"context"
	"fmt"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
	DefaultTimeout     = 60 * time.Second
)

// DefaultCandidates are the model identifiers offered for selection when the
// provider lists them.
var DefaultCandidates = []string{"allam-2-7b", "whisper-large-v3", "llama-3.1-8b-instant"}

// Config holds completion client parameters. Sampling parameters are fixed
// policy values for a deployment; they are not changed per turn.
type Config struct {
	Provider       string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	BaseURL        string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey         string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	DefaultModel   string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	Candidates     []string `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Temperature    float32  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// DefaultConfig returns the default completion configuration: an
// OpenAI-compatible endpoint hosted by Groq. No API key is set.
func DefaultConfig() Config {
	return Config{
		Provider:       ProviderOpenAI,
		BaseURL:        DefaultBaseURL,
		DefaultModel:   DefaultModel,
		Candidates:     append([]string(nil), DefaultCandidates...),
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
		TimeoutSeconds: int(DefaultTimeout / time.Second),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.DefaultModel != "" {
		c.DefaultModel = source.DefaultModel
	}
	if len(source.Candidates) > 0 {
		c.Candidates = source.Candidates
	}
	if source.Temperature > 0 {
		c.Temperature = source.Temperature
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
	if source.TimeoutSeconds > 0 {
		c.TimeoutSeconds = source.TimeoutSeconds
	}
}

// Timeout returns the per-call timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// New creates a Provider from configuration.
func New(ctx context.Context, cfg *Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		c, err := NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
