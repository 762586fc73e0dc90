package httpclient

import (
	"time"

	"github.com/kbukum/scribe/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to request paths that are not absolute URLs.
	BaseURL string
	// Timeout bounds each attempt. Per-call deadlines come from ctx.
	Timeout time.Duration
	// Headers are sent with every request.
	Headers map[string]string
	// Retry, when set, retries attempts that fail with a retryable Error.
	Retry *resilience.RetryConfig
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// RetryConfig returns a retry policy of attempts tries that only retries
// errors classified as retryable.
func RetryConfig(attempts int) *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.RetryIf = IsRetryable
	return &cfg
}
