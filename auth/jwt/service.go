// Package jwt signs and parses HMAC JWTs for a caller-defined claims type.
//
//	svc, err := jwt.NewService(cfg, func() *auth.Claims { return &auth.Claims{} })
//	token, err := svc.Generate(&auth.Claims{UserID: "u1"})
//	claims, err := svc.Parse(token)
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/scribe/auth"
)

// Service provides token generation and parsing for claims type T.
type Service[T gojwt.Claims] struct {
	cfg      Config
	method   gojwt.SigningMethod
	newEmpty func() T
	now      func() time.Time
}

type defaultsSetter interface {
	SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string)
}

// NewService creates a token service. newEmpty returns a fresh T for parsing.
func NewService[T gojwt.Claims](cfg Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service[T]{cfg: cfg, method: methods[cfg.Method], newEmpty: newEmpty, now: time.Now}, nil
}

// Generate signs claims using the configured TTL.
func (s *Service[T]) Generate(claims T) (string, error) {
	return s.GenerateWithTTL(claims, s.cfg.TTL)
}

// GenerateWithTTL signs claims, filling time claims first when T supports it.
func (s *Service[T]) GenerateWithTTL(claims T, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	if d, ok := any(claims).(defaultsSetter); ok {
		d.SetDefaults(s.now(), ttl, s.cfg.Issuer, s.cfg.Audience)
	}
	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates signature and time claims and returns the parsed claims.
func (s *Service[T]) Parse(token string) (T, error) {
	var zero T
	claims := s.newEmpty()
	parsed, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, s.parserOptions()...)
	if err != nil {
		return zero, fmt.Errorf("jwt: parse token: %w", err)
	}
	if !parsed.Valid {
		return zero, errors.New("jwt: invalid token")
	}
	out, ok := parsed.Claims.(T)
	if !ok {
		return zero, errors.New("jwt: unexpected claims type")
	}
	return out, nil
}

// Validator adapts the service to auth.TokenValidator.
func (s *Service[T]) Validator() auth.TokenValidator {
	return auth.TokenValidatorFunc(func(_ context.Context, token string) (any, error) {
		return s.Parse(token)
	})
}

func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.method.Alg()}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithExpirationRequired(),
	}
	if s.cfg.Leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(s.cfg.Leeway))
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	if len(s.cfg.Audience) > 0 {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience[0]))
	}
	return opts
}
