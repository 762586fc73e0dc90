package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypedStore stores JSON-encoded values of type V under namespaced keys.
type TypedStore[V any] struct {
	client *Client
	ns     string
}

// NewTypedStore creates a store whose keys are client.Key(ns, key).
func NewTypedStore[V any](client *Client, ns string) *TypedStore[V] {
	return &TypedStore[V]{client: client, ns: ns}
}

// Key returns the full redis key for key.
func (s *TypedStore[V]) Key(key string) string { return s.client.Key(s.ns, key) }

// Load returns (nil, nil) if the key does not exist.
func (s *TypedStore[V]) Load(ctx context.Context, key string) (*V, error) {
	return s.LoadTx(ctx, s.client.rdb, key)
}

// LoadTx is Load through cmd, typically a *goredis.Tx inside WATCH.
func (s *TypedStore[V]) LoadTx(ctx context.Context, cmd goredis.Cmdable, key string) (*V, error) {
	raw, err := cmd.Get(ctx, s.Key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("typed store load %q: %w", key, err)
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("typed store unmarshal %q: %w", key, err)
	}
	return &v, nil
}

// Save stores v. A ttl of 0 means no expiration.
func (s *TypedStore[V]) Save(ctx context.Context, key string, v *V, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("typed store marshal %q: %w", key, err)
	}
	if err := s.client.rdb.Set(ctx, s.Key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("typed store save %q: %w", key, err)
	}
	return nil
}

// SaveTx queues the write on a MULTI/EXEC pipeline.
func (s *TypedStore[V]) SaveTx(ctx context.Context, pipe goredis.Pipeliner, key string, v *V) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("typed store marshal %q: %w", key, err)
	}
	pipe.Set(ctx, s.Key(key), data, 0)
	return nil
}

// Delete removes key.
func (s *TypedStore[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("typed store delete %q: %w", key, err)
	}
	return nil
}
