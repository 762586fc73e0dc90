package auth

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims. userId is the only field the core needs.
type Claims struct {
	gojwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Identity implements IdentityProvider.
func (c *Claims) Identity() Identity {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return Identity{UserID: id}
}

// SetDefaults fills the time-based registered claims before signing.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil && ttl > 0 {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && len(audience) > 0 {
		c.Audience = audience
	}
}
