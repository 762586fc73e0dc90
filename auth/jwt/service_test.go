package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/scribe/auth"
)

const secret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T, cfg Config) *Service[*auth.Claims] {
	t.Helper()
	svc, err := NewService(cfg, func() *auth.Claims { return &auth.Claims{} })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestService_RoundTrip(t *testing.T) {
	svc := newService(t, Config{Secret: secret, Issuer: "scribe"})

	token, err := svc.Generate(&auth.Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Issuer != "scribe" {
		t.Errorf("claims = %+v", claims)
	}

	got, err := svc.Validator().ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got.(*auth.Claims).Identity().UserID != "u1" {
		t.Errorf("identity = %+v", got)
	}
}

func TestService_Expired(t *testing.T) {
	svc := newService(t, Config{Secret: secret})
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.GenerateWithTTL(&auth.Claims{UserID: "u1"}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	svc.now = time.Now
	if _, err := svc.Parse(token); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("expected expiry error, got %v", err)
	}
}

func TestService_WrongSecretAndAlgorithm(t *testing.T) {
	a := newService(t, Config{Secret: secret})
	b := newService(t, Config{Secret: strings.Repeat("x", 32)})
	token, _ := a.Generate(&auth.Claims{UserID: "u1"})
	if _, err := b.Parse(token); err == nil {
		t.Error("token signed with another secret must not parse")
	}

	none, _ := gojwt.NewWithClaims(gojwt.SigningMethodNone, &auth.Claims{UserID: "u1"}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	if _, err := a.Parse(none); err == nil {
		t.Error("alg=none must be rejected")
	}
}

func TestConfig_Validate(t *testing.T) {
	if _, err := NewService(Config{Secret: "short"}, func() *auth.Claims { return &auth.Claims{} }); err == nil {
		t.Error("expected short secret error")
	}
	if _, err := NewService(Config{Secret: secret, Method: "RS256"}, func() *auth.Claims { return &auth.Claims{} }); err == nil {
		t.Error("expected unsupported method error")
	}
}
