package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/scribe/logger"
)

func newTestClient(t *testing.T, prefix string) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := New(Config{Addr: mini.Addr(), KeyPrefix: prefix}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

type testState struct {
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func TestTypedStore_SaveLoadDelete(t *testing.T) {
	client, _ := newTestClient(t, "")
	store := NewTypedStore[testState](client, "test")
	ctx := context.Background()

	if err := store.Save(ctx, "k1", &testState{Count: 5, Tags: []string{"a", "b"}}, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "k1")
	if err != nil || got == nil {
		t.Fatalf("Load: %v, %v", got, err)
	}
	if got.Count != 5 || len(got.Tags) != 2 {
		t.Fatalf("got %+v", got)
	}

	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := store.Load(ctx, "k1"); err != nil || got != nil {
		t.Fatalf("after delete: %+v, %v", got, err)
	}
}

func TestTypedStore_LoadMissing(t *testing.T) {
	client, _ := newTestClient(t, "")
	got, err := NewTypedStore[testState](client, "test").Load(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestTypedStore_TTL(t *testing.T) {
	client, mini := newTestClient(t, "")
	store := NewTypedStore[testState](client, "test")
	ctx := context.Background()

	if err := store.Save(ctx, "k1", &testState{Count: 1}, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	mini.FastForward(3 * time.Second)
	if got, _ := store.Load(ctx, "k1"); got != nil {
		t.Fatalf("expected expiry, got %+v", got)
	}
}

func TestTypedStore_Keys(t *testing.T) {
	tests := []struct {
		prefix, ns, key, want string
	}{
		{"scribe", "session", "abc", "scribe:session:abc"},
		{"other", "x", "y", "other:x:y"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			client, mini := newTestClient(t, tt.prefix)
			store := NewTypedStore[testState](client, tt.ns)
			if got := store.Key(tt.key); got != tt.want {
				t.Fatalf("Key = %q, want %q", got, tt.want)
			}
			if err := store.Save(context.Background(), tt.key, &testState{Count: 1}, 0); err != nil {
				t.Fatal(err)
			}
			if raw, err := mini.Get(tt.want); err != nil || raw == "" {
				t.Fatalf("key %q not written: %v", tt.want, err)
			}
		})
	}
}

func TestTypedStore_SaveTx(t *testing.T) {
	client, _ := newTestClient(t, "")
	store := NewTypedStore[testState](client, "test")
	ctx := context.Background()

	_, err := client.Unwrap().TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if err := store.SaveTx(ctx, pipe, "a", &testState{Count: 1}); err != nil {
			return err
		}
		pipe.RPush(ctx, client.Key("list"), "x")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(ctx, "a"); got == nil || got.Count != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestComponent(t *testing.T) {
	mini := miniredis.RunT(t)
	c := NewComponent(Config{Addr: mini.Addr()}, logger.Nop())
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("health before start = %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != "healthy" {
		t.Errorf("health = %s (%s)", h.Status, h.Message)
	}
	if !c.Client().IsAvailable(ctx) {
		t.Error("expected available")
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Client().IsAvailable(ctx) {
		t.Error("expected unavailable after stop")
	}
}
