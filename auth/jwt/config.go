package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported HMAC algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// Config configures a token service.
type Config struct {
	Secret   string        `yaml:"secret" mapstructure:"secret"`
	Method   SigningMethod `yaml:"method" mapstructure:"method"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Audience []string      `yaml:"audience" mapstructure:"audience"`
	// TTL is applied by GenerateWithTTL when the caller passes zero.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// Leeway tolerates clock skew when checking exp/nbf/iat.
	Leeway time.Duration `yaml:"leeway" mapstructure:"leeway"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL == 0 {
		c.TTL = time.Hour
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if _, ok := methods[c.Method]; !ok {
		return errors.New("jwt: unsupported signing method: " + string(c.Method))
	}
	if len(c.Secret) < 16 {
		return errors.New("jwt: secret must be at least 16 bytes")
	}
	return nil
}

var methods = map[SigningMethod]gojwt.SigningMethod{
	HS256: gojwt.SigningMethodHS256,
	HS384: gojwt.SigningMethodHS384,
	HS512: gojwt.SigningMethodHS512,
}
