package kernel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/completion"
	"github.com/tailored-agentic-units/converse/prompt"
	"github.com/tailored-agentic-units/converse/session"
	"github.com/tailored-agentic-units/converse/speech"
	"github.com/tailored-agentic-units/converse/translation"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvCompletionAPIKey = "CONVERSE_COMPLETION_API_KEY"
	EnvGroqAPIKey       = "GROQ_API_KEY"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvDeepgramAPIKey   = "DEEPGRAM_API_KEY"
	EnvTranslationEmail = "CONVERSE_TRANSLATION_EMAIL"
)

// Config holds initialization parameters for all kernel subsystems.
// Each subsystem section delegates to that subsystem's config-driven constructor.
type Config struct {
	Completion          completion.Config  `json:"completion" yaml:"completion"`
	Translation         translation.Config `json:"translation" yaml:"translation"`
	Speech              speech.Config      `json:"speech" yaml:"speech"`
	Session             session.Config     `json:"session" yaml:"session"`
	Prompt              prompt.Config      `json:"prompt" yaml:"prompt"`
	LanguageMode        string             `json:"language_mode,omitempty" yaml:"language_mode,omitempty"`
	TargetLanguage      string             `json:"target_language,omitempty" yaml:"target_language,omitempty"`
	ProbeTimeoutSeconds int                `json:"probe_timeout_seconds,omitempty" yaml:"probe_timeout_seconds,omitempty"`
	Observer            string             `json:"observer,omitempty" yaml:"observer,omitempty"`
	TokenEncoding       string             `json:"token_encoding,omitempty" yaml:"token_encoding,omitempty"`
}

// DefaultConfig returns a Config with defaults for all subsystems. Replies
// are shown in the source language and Hindi is the translation target.
func DefaultConfig() Config {
	return Config{
		Completion:          completion.DefaultConfig(),
		Translation:         translation.DefaultConfig(),
		Speech:              speech.DefaultConfig(),
		Session:             session.DefaultConfig(),
		Prompt:              prompt.DefaultConfig(),
		LanguageMode:        string(LanguageSource),
		TargetLanguage:      translation.DefaultTargetLanguage,
		ProbeTimeoutSeconds: int(capability.DefaultProbeTimeout / time.Second),
		Observer:            "slog",
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Completion.Merge(&source.Completion)
	c.Translation.Merge(&source.Translation)
	c.Speech.Merge(&source.Speech)
	c.Session.Merge(&source.Session)
	c.Prompt.Merge(&source.Prompt)

	if source.LanguageMode != "" {
		c.LanguageMode = source.LanguageMode
	}
	if source.TargetLanguage != "" {
		c.TargetLanguage = source.TargetLanguage
	}
	if source.ProbeTimeoutSeconds > 0 {
		c.ProbeTimeoutSeconds = source.ProbeTimeoutSeconds
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.TokenEncoding != "" {
		c.TokenEncoding = source.TokenEncoding
	}
}

// ApplyEnv fills credentials from environment variables read through getenv.
// Non-empty variables override values from the config file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if key := getenv(EnvCompletionAPIKey); key != "" {
		c.Completion.APIKey = key
	} else if c.Completion.Provider == completion.ProviderGemini {
		if key := getenv(EnvGeminiAPIKey); key != "" {
			c.Completion.APIKey = key
		}
	} else if key := getenv(EnvGroqAPIKey); key != "" {
		c.Completion.APIKey = key
	}

	if key := getenv(EnvDeepgramAPIKey); key != "" {
		c.Speech.APIKey = key
	}
	if email := getenv(EnvTranslationEmail); email != "" {
		c.Translation.Email = email
	}
}

// ProbeTimeout returns the per-probe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	if c.ProbeTimeoutSeconds <= 0 {
		return capability.DefaultProbeTimeout
	}
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// LoadConfig reads a JSON or YAML config file (chosen by extension), merges
// it with defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
