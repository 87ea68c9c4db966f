package speech

import (
	"fmt"
	"time"
)

const (
	ProviderDeepgram = "deepgram"
	ProviderNone     = "none"

	DefaultBaseURL       = "wss://api.deepgram.com"
	DefaultListenModel   = "nova-2"
	DefaultVoice         = "aura-2-arcas-en"
	DefaultListenTimeout = 10 * time.Second

	// ListenSampleRate and SpeakSampleRate are the PCM rates the recorder
	// must produce and the player must accept.
	ListenSampleRate = 16000
	SpeakSampleRate  = 8000
)

// DefaultRecorderCommand captures mono 16 kHz linear16 audio on stdout.
var DefaultRecorderCommand = []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"}

// DefaultPlayerCommand plays mono 8 kHz linear16 audio from stdin.
var DefaultPlayerCommand = []string{"aplay", "-q", "-f", "S16_LE", "-r", "8000", "-c", "1", "-t", "raw"}

// Config holds speech parameters. Voices maps a language hint to a voice
// model; languages without an entry use DefaultVoice.
type Config struct {
	Provider             string            `json:"provider,omitempty" yaml:"provider,omitempty"`
	APIKey               string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL              string            `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	ListenModel          string            `json:"listen_model,omitempty" yaml:"listen_model,omitempty"`
	ListenLanguage       string            `json:"listen_language,omitempty" yaml:"listen_language,omitempty"`
	Voices               map[string]string `json:"voices,omitempty" yaml:"voices,omitempty"`
	ListenTimeoutSeconds int               `json:"listen_timeout_seconds,omitempty" yaml:"listen_timeout_seconds,omitempty"`
	RecorderCommand      []string          `json:"recorder_command,omitempty" yaml:"recorder_command,omitempty"`
	PlayerCommand        []string          `json:"player_command,omitempty" yaml:"player_command,omitempty"`
}

// DefaultConfig returns the Deepgram configuration using ALSA command line
// tools for audio. No API key is set.
func DefaultConfig() Config {
	return Config{
		Provider:             ProviderDeepgram,
		BaseURL:              DefaultBaseURL,
		ListenModel:          DefaultListenModel,
		ListenLanguage:       "en",
		Voices:               map[string]string{"en": DefaultVoice},
		ListenTimeoutSeconds: int(DefaultListenTimeout / time.Second),
		RecorderCommand:      append([]string(nil), DefaultRecorderCommand...),
		PlayerCommand:        append([]string(nil), DefaultPlayerCommand...),
	}
}

// Merge applies non-zero values from source into c. Voices are merged per
// language.
func (c *Config) Merge(source *Config) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.ListenModel != "" {
		c.ListenModel = source.ListenModel
	}
	if source.ListenLanguage != "" {
		c.ListenLanguage = source.ListenLanguage
	}
	if len(source.Voices) > 0 {
		if c.Voices == nil {
			c.Voices = make(map[string]string, len(source.Voices))
		}
		for lang, voice := range source.Voices {
			c.Voices[lang] = voice
		}
	}
	if source.ListenTimeoutSeconds > 0 {
		c.ListenTimeoutSeconds = source.ListenTimeoutSeconds
	}
	if len(source.RecorderCommand) > 0 {
		c.RecorderCommand = source.RecorderCommand
	}
	if len(source.PlayerCommand) > 0 {
		c.PlayerCommand = source.PlayerCommand
	}
}

// ListenTimeout returns the default utterance capture limit.
func (c *Config) ListenTimeout() time.Duration {
	if c.ListenTimeoutSeconds <= 0 {
		return DefaultListenTimeout
	}
	return time.Duration(c.ListenTimeoutSeconds) * time.Second
}

// Voice returns the voice model for a language hint.
func (c *Config) Voice(lang string) string {
	if v, ok := c.Voices[lang]; ok && v != "" {
		return v
	}
	if v, ok := c.Voices["en"]; ok && v != "" {
		return v
	}
	return DefaultVoice
}

// New creates the Listener and Speaker described by cfg. ProviderNone
// yields nil for both, meaning speech is absent.
func New(cfg *Config) (Listener, Speaker, error) {
	switch cfg.Provider {
	case ProviderDeepgram, "":
		if cfg.APIKey == "" {
			return nil, nil, ErrMissingAPIKey
		}
		return NewDeepgramListener(cfg), NewDeepgramSpeaker(cfg), nil
	case ProviderNone:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
