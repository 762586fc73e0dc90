package whisper

import "time"

const (
	defaultURL     = "http://localhost:8387"
	defaultModel   = "base"
	defaultTimeout = 120 * time.Second
)

// Config holds configuration for the faster-whisper sidecar.
type Config struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Model string `yaml:"model" mapstructure:"model"`
	// Timeout is the HTTP client timeout. Per-call deadlines come from ctx.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Attempts is how many times a request failing with a connection error,
	// 429 or 5xx is tried. Zero or one means no retry.
	Attempts int `yaml:"attempts" mapstructure:"attempts"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}
