package storage

import (
	"fmt"
	"time"

	"github.com/kbukum/scribe/util"
)

// Provider names.
const (
	ProviderMemory = "memory"
	ProviderLocal  = "local"
	ProviderS3     = "s3"
)

const (
	// DefaultGrantTTL is how long an upload URL stays valid when the caller does not say.
	DefaultGrantTTL = 15 * time.Minute
	// DefaultMaxObjectSize caps server-side puts.
	DefaultMaxObjectSize = "50MB"
)

// Config holds settings shared by all backends.
type Config struct {
	Provider      string        `yaml:"provider" mapstructure:"provider"`
	GrantTTL      time.Duration `yaml:"grant_ttl" mapstructure:"grant_ttl"`
	MaxObjectSize string        `yaml:"max_object_size" mapstructure:"max_object_size"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.GrantTTL <= 0 {
		c.GrantTTL = DefaultGrantTTL
	}
	if c.MaxObjectSize == "" {
		c.MaxObjectSize = DefaultMaxObjectSize
	}
}

// Validate checks the shared settings.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("storage: provider is required")
	}
	if c.MaxObjectSizeBytes() <= 0 {
		return fmt.Errorf("storage: invalid max_object_size %q", c.MaxObjectSize)
	}
	return nil
}

// MaxObjectSizeBytes returns MaxObjectSize in bytes.
func (c *Config) MaxObjectSizeBytes() int64 {
	return util.ParseSize(c.MaxObjectSize, 0)
}
