package local

import (
	"fmt"
	"strings"
)

// DefaultBasePath is the default root directory for local storage.
const DefaultBasePath = "/tmp/scribe-blobs"

// Config holds local filesystem storage configuration.
type Config struct {
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
	// PublicURL is the externally reachable base URL of this service; upload
	// grants point at {PublicURL}/blobs/{path}.
	PublicURL string `yaml:"public_url" mapstructure:"public_url"`
	// GrantSecret signs upload grants.
	GrantSecret string `yaml:"grant_secret" mapstructure:"grant_secret"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost:8080"
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
}

// Validate checks that the local configuration is valid.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("local: base_path is required")
	}
	if len(c.GrantSecret) < 16 {
		return fmt.Errorf("local: grant_secret must be at least 16 bytes")
	}
	return nil
}
