package session

const (
	// DefaultHistoryWindow is the number of prior turns (three exchanges)
	// included in each outbound completion request.
	DefaultHistoryWindow = 6

	// DefaultSystemPrompt seeds the pinned system turn.
	DefaultSystemPrompt = "You are a helpful AI assistant. You can communicate in both English and Hindi. Provide clear, concise responses."
)

// Config holds session initialization parameters.
type Config struct {
	HistoryWindow int    `json:"history_window,omitempty" yaml:"history_window,omitempty"`
	SystemPrompt  string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		HistoryWindow: DefaultHistoryWindow,
		SystemPrompt:  DefaultSystemPrompt,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.HistoryWindow > 0 {
		c.HistoryWindow = source.HistoryWindow
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
}

// New creates a Session from configuration. Currently returns an in-memory session.
func New(cfg *Config) (Session, error) {
	return NewMemorySession(cfg.SystemPrompt), nil
}
