package prompt

// Config holds prompt fragment parameters.
type Config struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"` // fragment root directory; empty disables fragments.
}

// DefaultConfig returns the default prompt configuration (no fragments).
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
}

// NewStore creates a Store from configuration. Returns a nil Store when Path
// is empty.
func NewStore(cfg *Config) Store {
	if cfg.Path == "" {
		return nil
	}
	return NewFileStore(cfg.Path)
}
