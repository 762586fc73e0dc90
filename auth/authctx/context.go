// Package authctx carries the authenticated caller through a request context.
package authctx

import (
	"context"
	"errors"

	"github.com/kbukum/scribe/auth"
)

type claimsKey struct{}
type identityKey struct{}

// ErrNoIdentity is returned when the context carries no authenticated caller.
var ErrNoIdentity = errors.New("authctx: no identity in context")

// Set stores claims in ctx. When the claims carry an identity it is stored too.
func Set(ctx context.Context, claims any) context.Context {
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	if p, ok := claims.(auth.IdentityProvider); ok {
		ctx = context.WithValue(ctx, identityKey{}, p.Identity())
	}
	return ctx
}

// Get retrieves typed claims from ctx.
func Get[T any](ctx context.Context) (T, bool) {
	claims, ok := ctx.Value(claimsKey{}).(T)
	return claims, ok
}

// Identity returns the authenticated caller.
func Identity(ctx context.Context) (auth.Identity, error) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	if !ok || id.UserID == "" {
		return auth.Identity{}, ErrNoIdentity
	}
	return id, nil
}
