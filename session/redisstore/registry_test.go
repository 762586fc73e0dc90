package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/session"
	"github.com/kbukum/scribe/session/redisstore"
	"github.com/kbukum/scribe/session/sessiontest"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Addr: mini.Addr(), KeyPrefix: "test"}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestRegistry(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T, opts ...session.Option) session.Registry {
		client, _ := newClient(t)
		return redisstore.New(client, opts...)
	})
}

func TestRegistry_KeyLayout(t *testing.T) {
	client, mini := newClient(t)
	r := redisstore.New(client, session.WithIDGenerator(func() string { return "s1" }))
	ctx := context.Background()

	if _, err := r.Create(ctx, "p1", "u1"); err != nil {
		t.Fatal(err)
	}
	if err := r.AppendChunk(ctx, "s1", "u1", "s1/0.webm"); err != nil {
		t.Fatal(err)
	}

	if !mini.Exists("test:session:s1") {
		t.Error("metadata key missing")
	}
	if got, err := mini.List("test:session:s1:chunks"); err != nil || len(got) != 1 || got[0] != "s1/0.webm" {
		t.Errorf("chunks list = %v, %v", got, err)
	}
	if got, err := mini.List("test:owner:u1:sessions"); err != nil || len(got) != 1 || got[0] != "s1" {
		t.Errorf("owner index = %v, %v", got, err)
	}
}

func TestRegistry_StoreDown(t *testing.T) {
	client, mini := newClient(t)
	r := redisstore.New(client)
	mini.Close()

	_, err := r.Create(context.Background(), "p1", "u1")
	if !apperrors.HasCode(err, apperrors.ErrCodeDatabaseError) {
		t.Fatalf("err = %v, want DATABASE_ERROR", err)
	}
}
