package app

import (
	"fmt"

	"github.com/kbukum/scribe/auth/jwt"
	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/encryption"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/recording"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/storage/local"
	"github.com/kbukum/scribe/storage/s3"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/transcription/whisper"
)

// Session registry backends.
const (
	RegistryMemory = "memory"
	RegistryRedis  = "redis"
	RegistrySQL    = "sql"
)

// Config is the scribe service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Auth          jwt.Config           `yaml:"auth" mapstructure:"auth"`
	Storage       StorageConfig        `yaml:"storage" mapstructure:"storage"`
	Transcription TranscriptionConfig  `yaml:"transcription" mapstructure:"transcription"`
	Registry      RegistryConfig       `yaml:"registry" mapstructure:"registry"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Kafka         KafkaConfig          `yaml:"kafka" mapstructure:"kafka"`
	Recording     recording.Config     `yaml:"recording" mapstructure:"recording"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// StorageConfig selects the blob backend and carries each backend's settings.
type StorageConfig struct {
	storage.Config `yaml:",inline" mapstructure:",squash"`

	S3    s3.Config    `yaml:"s3" mapstructure:"s3"`
	Local local.Config `yaml:"local" mapstructure:"local"`
}

// Backend returns the config of the selected backend.
func (c *StorageConfig) Backend() any {
	switch c.Provider {
	case storage.ProviderS3:
		return &c.S3
	case storage.ProviderLocal:
		return &c.Local
	}
	return nil
}

// TranscriptionConfig configures the gateway and its backends.
type TranscriptionConfig struct {
	transcription.Config `yaml:",inline" mapstructure:",squash"`

	Whisper whisper.Config `yaml:"whisper" mapstructure:"whisper"`
}

// Backend returns the config of the selected backend.
func (c *TranscriptionConfig) Backend() any {
	if c.Provider == whisper.ProviderName {
		return &c.Whisper
	}
	return nil
}

// RegistryConfig selects where sessions are kept.
type RegistryConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	// EncryptionKey, when set, seals transcripts before they reach the backend.
	EncryptionKey       string               `yaml:"encryption_key" mapstructure:"encryption_key"`
	EncryptionAlgorithm encryption.Algorithm `yaml:"encryption_algorithm" mapstructure:"encryption_algorithm"`
}

func (c *RegistryConfig) validate() error {
	if c.EncryptionKey == "" {
		return nil
	}
	if len(c.EncryptionKey) < encryption.MinKeyLength {
		return fmt.Errorf("encryption_key must be at least %d bytes", encryption.MinKeyLength)
	}
	switch c.EncryptionAlgorithm {
	case "", encryption.AlgorithmAESGCM, encryption.AlgorithmChaCha20:
		return nil
	}
	return fmt.Errorf("unsupported encryption_algorithm %q", c.EncryptionAlgorithm)
}

// KafkaConfig enables completion events.
type KafkaConfig struct {
	Enabled      bool `yaml:"enabled" mapstructure:"enabled"`
	kafka.Config `yaml:",inline" mapstructure:",squash"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "scribe"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Storage.Config.ApplyDefaults()
	switch c.Storage.Provider {
	case storage.ProviderS3:
		c.Storage.S3.ApplyDefaults()
	case storage.ProviderLocal:
		c.Storage.Local.ApplyDefaults()
	}
	c.Transcription.Config.ApplyDefaults()
	c.Transcription.Whisper.ApplyDefaults()
	if c.Registry.Backend == "" {
		c.Registry.Backend = RegistryMemory
	}
	switch c.Registry.Backend {
	case RegistryRedis:
		c.Redis.ApplyDefaults()
	case RegistrySQL:
		c.Database.ApplyDefaults()
	}
	if c.Kafka.Enabled {
		c.Kafka.Config.ApplyDefaults()
	}
	c.Recording.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

type sectionCheck struct {
	name string
	fn   func() error
}

// Validate checks every section in use.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	checks := []sectionCheck{
		{"server", c.Server.Validate},
		{"auth", c.Auth.Validate},
		{"storage", c.Storage.Config.Validate},
		{"transcription", c.Transcription.Config.Validate},
		{"recording", c.Recording.Validate},
		{"observability", c.Observability.Validate},
		{"registry", c.Registry.validate},
	}
	switch c.Storage.Provider {
	case storage.ProviderS3:
		checks = append(checks, sectionCheck{"storage.s3", c.Storage.S3.Validate})
	case storage.ProviderLocal:
		checks = append(checks, sectionCheck{"storage.local", c.Storage.Local.Validate})
	case storage.ProviderMemory:
	default:
		return fmt.Errorf("config.storage: unknown provider %q", c.Storage.Provider)
	}
	switch c.Registry.Backend {
	case RegistryMemory:
	case RegistryRedis:
		checks = append(checks, sectionCheck{"redis", c.Redis.Validate})
	case RegistrySQL:
		checks = append(checks, sectionCheck{"database", c.Database.Validate})
	default:
		return fmt.Errorf("config.registry.backend must be one of memory, redis, sql (got: %s)", c.Registry.Backend)
	}
	if c.Kafka.Enabled {
		checks = append(checks, sectionCheck{"kafka", c.Kafka.Config.Validate})
	}

	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("config.%s: %w", chk.name, err)
		}
	}
	return nil
}
