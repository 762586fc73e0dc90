package storage_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/storage/memory"
)

func newGateway(t *testing.T, cfg storage.Config) (*storage.Gateway, *memory.Storage) {
	t.Helper()
	mem := memory.New()
	gw, err := storage.NewGateway(mem, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	return gw, mem
}

func TestGateway_IssueWriteGrant_DefaultTTL(t *testing.T) {
	gw, _ := newGateway(t, storage.Config{})
	before := time.Now()

	grant, err := gw.IssueWriteGrant(context.Background(), "s1/0.webm", "audio/webm", 0)
	if err != nil {
		t.Fatal(err)
	}
	if grant.Path != "s1/0.webm" || !strings.Contains(grant.URL, "s1/0.webm") {
		t.Errorf("grant = %+v", grant)
	}
	ttl := grant.ExpiresAt.Sub(before)
	if ttl < 14*time.Minute || ttl > 16*time.Minute {
		t.Errorf("default ttl = %v, want ~15m", ttl)
	}
}

func TestGateway_IssueWriteGrant_Errors(t *testing.T) {
	gw, mem := newGateway(t, storage.Config{})
	ctx := context.Background()

	if _, err := gw.IssueWriteGrant(ctx, "../etc/passwd", "audio/webm", 0); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("traversal: err = %v", err)
	}

	mem.Fail("sign", errors.New("credentials expired"))
	_, err := gw.IssueWriteGrant(ctx, "s1/0.webm", "audio/webm", time.Minute)
	if !apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable) {
		t.Errorf("sign failure: err = %v, want STORE_UNAVAILABLE", err)
	}
}

func TestGateway_PutGet(t *testing.T) {
	gw, mem := newGateway(t, storage.Config{MaxObjectSize: "8B"})
	ctx := context.Background()

	if err := gw.PutObject(ctx, "s1/transcript.txt", []byte("hello"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	data, err := gw.GetObject(ctx, "s1/transcript.txt")
	if err != nil || string(data) != "hello" {
		t.Fatalf("GetObject = %q, %v", data, err)
	}

	if err := gw.PutObject(ctx, "big", []byte("123456789"), "text/plain"); !apperrors.HasCode(err, apperrors.ErrCodePayloadTooLarge) {
		t.Errorf("oversize put: err = %v", err)
	}
	if _, err := gw.GetObject(ctx, "missing"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("missing get: err = %v", err)
	}

	mem.Fail("put", errors.New("503"))
	if err := gw.PutObject(ctx, "s1/x", []byte("x"), "text/plain"); !apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable) {
		t.Errorf("put failure: err = %v", err)
	}
	mem.Fail("get", errors.New("503"))
	if _, err := gw.GetObject(ctx, "s1/transcript.txt"); !apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable) {
		t.Errorf("get failure: err = %v", err)
	}
}

func TestCleanPath(t *testing.T) {
	for p, ok := range map[string]bool{
		"s1/0.webm":             true,
		"u1/sessions/1-full.wav": true,
		"":                      false,
		"/abs":                  false,
		"a//b":                  false,
		"a/./b":                 false,
		"a/../b":                false,
		`a\b`:                   false,
	} {
		_, err := storage.CleanPath(p)
		if (err == nil) != ok {
			t.Errorf("CleanPath(%q) err = %v, want ok=%v", p, err, ok)
		}
	}
}

func TestNew_SelectsRegisteredBackend(t *testing.T) {
	s, err := storage.New(storage.Options{Config: storage.Config{Provider: storage.ProviderMemory}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*memory.Storage); !ok {
		t.Errorf("New returned %T", s)
	}
	if _, err := storage.New(storage.Options{Config: storage.Config{Provider: "gcs"}}); err == nil {
		t.Error("expected unknown provider error")
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	c := storage.NewComponent(storage.Config{Provider: storage.ProviderMemory}, nil, logger.Nop())
	if c.Health(context.Background()).Status == "healthy" {
		t.Error("component should be unhealthy before start")
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Gateway() == nil || c.Health(context.Background()).Status != "healthy" {
		t.Error("component should be healthy after start")
	}
	_ = c.Stop(context.Background())
}
