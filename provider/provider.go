// Package provider holds the small plumbing shared by pluggable backends:
// a name plus availability probe, and a registry of named factories so
// configuration can select a backend by string.
package provider

import "context"

// Provider is the base interface backends implement.
type Provider interface {
	Name() string
	// IsAvailable reports whether the backend can serve requests right now.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a backend of type T from configuration of type C.
type Factory[T any, C any] func(cfg C) (T, error)
