package authctx

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/scribe/auth"
)

func TestSet_IdentityFromClaims(t *testing.T) {
	ctx := Set(context.Background(), &auth.Claims{UserID: "u1"})

	id, err := Identity(ctx)
	if err != nil || id.UserID != "u1" {
		t.Fatalf("Identity = %+v, %v", id, err)
	}
	claims, ok := Get[*auth.Claims](ctx)
	if !ok || claims.UserID != "u1" {
		t.Errorf("Get = %+v, %v", claims, ok)
	}
	if _, ok := Get[string](ctx); ok {
		t.Error("Get with wrong type should fail")
	}
}

func TestIdentity_Missing(t *testing.T) {
	if _, err := Identity(context.Background()); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("err = %v", err)
	}
	ctx := Set(context.Background(), &auth.Claims{})
	if _, err := Identity(ctx); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("empty user id: err = %v", err)
	}
}
