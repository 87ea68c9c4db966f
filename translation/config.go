package translation

import (
	"fmt"
	"time"
)

const (
	ProviderMyMemory = "mymemory"
	ProviderNone     = "none"

	DefaultBaseURL        = "https://api.mymemory.translated.net"
	DefaultSourceLanguage = "en"
	DefaultTargetLanguage = "hi"
	DefaultTimeout        = 15 * time.Second
)

// Config holds translation client parameters.
type Config struct {
	Provider       string `json:"provider,omitempty" yaml:"provider,omitempty"`
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	SourceLanguage string `json:"source_language,omitempty" yaml:"source_language,omitempty"`
	Email          string `json:"email,omitempty" yaml:"email,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// DefaultConfig returns the MyMemory configuration with a 15 second timeout.
func DefaultConfig() Config {
	return Config{
		Provider:       ProviderMyMemory,
		BaseURL:        DefaultBaseURL,
		SourceLanguage: DefaultSourceLanguage,
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
	if source.SourceLanguage != "" {
		c.SourceLanguage = source.SourceLanguage
	}
	if source.Email != "" {
		c.Email = source.Email
	}
	if source.TimeoutSeconds > 0 {
		c.TimeoutSeconds = source.TimeoutSeconds
	}
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// New creates a Client from configuration.
func New(cfg *Config) (Client, error) {
	switch cfg.Provider {
	case ProviderMyMemory, "":
		return NewMyMemoryClient(cfg), nil
	case ProviderNone:
		return Passthrough{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
