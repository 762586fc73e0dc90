package transcription

import (
	"fmt"
	"time"
)

// FailedSentinel replaces the text of any object that could not be transcribed.
const FailedSentinel = "[Transcription failed]"

const (
	segmentSeparator = "\n "
	batchTerminator  = " "
)

// Config configures the gateway.
type Config struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	// SyncTimeout bounds each synchronous recognition call.
	SyncTimeout time.Duration `yaml:"sync_timeout" mapstructure:"sync_timeout"`
	// LongRunningTimeout bounds a whole long-running job including polling.
	LongRunningTimeout time.Duration `yaml:"long_running_timeout" mapstructure:"long_running_timeout"`
	PollInterval       time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	// BreakerFailures consecutive backend failures open the circuit for BreakerCooldown.
	BreakerFailures int           `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "whisper"
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = 60 * time.Second
	}
	if c.LongRunningTimeout <= 0 {
		c.LongRunningTimeout = 30 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.PollInterval > c.LongRunningTimeout {
		return fmt.Errorf("transcription: poll_interval %s exceeds long_running_timeout %s", c.PollInterval, c.LongRunningTimeout)
	}
	return nil
}
