// Package auth is the access boundary: it turns a bearer token into a caller
// identity. Handlers only ever see the identity, never the token.
package auth

import (
	"context"
	"strings"

	"github.com/kbukum/scribe/errors"
)

// TokenValidator validates a token string and returns the parsed claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (any, error)
}

// TokenValidatorFunc adapts an ordinary function to TokenValidator.
type TokenValidatorFunc func(ctx context.Context, token string) (any, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(ctx context.Context, token string) (any, error) {
	return f(ctx, token)
}

// Identity is the caller as seen by the core: a stable user id.
type Identity struct {
	UserID string `json:"userId"`
}

// IdentityProvider is implemented by claims types that carry a user id.
type IdentityProvider interface {
	Identity() Identity
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.Unauthorized("Missing or malformed bearer token.")
	}
	return strings.TrimSpace(token), nil
}
