package recording

import (
	"fmt"
	"time"
)

// ChunkOrder selects how a session's chunks are ordered for transcription.
type ChunkOrder string

const (
	// OrderArrival transcribes chunks in the order their uploads were confirmed.
	OrderArrival ChunkOrder = "arrival"
	// OrderChunkNumber sorts chunks by the number in their locator first.
	OrderChunkNumber ChunkOrder = "chunk_number"
)

// DefaultMaxWholeFileBytes caps whole-file uploads.
const DefaultMaxWholeFileBytes = 50 * 1024 * 1024

// Config configures the orchestrator.
type Config struct {
	ChunkOrder ChunkOrder `yaml:"chunk_order" mapstructure:"chunk_order"`
	// GrantTTL is the lifetime of chunk upload targets; zero uses the blob store default.
	GrantTTL time.Duration `yaml:"grant_ttl" mapstructure:"grant_ttl"`
	// CompletionTimeout bounds transcription and commit once a last chunk arrives.
	CompletionTimeout time.Duration `yaml:"completion_timeout" mapstructure:"completion_timeout"`
	MaxWholeFileBytes int64         `yaml:"max_whole_file_bytes" mapstructure:"max_whole_file_bytes"`
	// AbandonAfter completes sessions idle for this long. Zero disables reaping.
	AbandonAfter time.Duration `yaml:"abandon_after" mapstructure:"abandon_after"`
	ReapInterval time.Duration `yaml:"reap_interval" mapstructure:"reap_interval"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkOrder == "" {
		c.ChunkOrder = OrderArrival
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = 15 * time.Minute
	}
	if c.MaxWholeFileBytes <= 0 {
		c.MaxWholeFileBytes = DefaultMaxWholeFileBytes
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.ChunkOrder {
	case OrderArrival, OrderChunkNumber:
	default:
		return fmt.Errorf("recording.chunk_order must be %q or %q, got %q", OrderArrival, OrderChunkNumber, c.ChunkOrder)
	}
	if c.AbandonAfter < 0 {
		return fmt.Errorf("recording.abandon_after must be non-negative")
	}
	if c.GrantTTL < 0 {
		return fmt.Errorf("recording.grant_ttl must be non-negative")
	}
	return nil
}
