// Package redisstore is a session.Registry backed by Redis.
//
// Layout, under the client's key prefix:
//
//	session:{id}          JSON metadata (everything but chunks)
//	session:{id}:chunks   list of locators, RPUSH order
//	owner:{owner}:sessions  list of session ids, creation order
//	sessions              list of all session ids, creation order
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/session"
)

const maxTxRetries = 16

type record struct {
	ID         string         `json:"id"`
	PatientID  string         `json:"patientId"`
	OwnerID    string         `json:"userId"`
	Status     session.Status `json:"status"`
	Transcript string         `json:"transcript"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (r *record) toSession(chunks []string) *session.Session {
	if chunks == nil {
		chunks = []string{}
	}
	return &session.Session{
		ID:         r.ID,
		PatientID:  r.PatientID,
		OwnerID:    r.OwnerID,
		Status:     r.Status,
		Chunks:     chunks,
		Transcript: r.Transcript,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Registry implements session.Registry on Redis.
type Registry struct {
	client *redis.Client
	rdb    *goredis.Client
	meta   *redis.TypedStore[record]
	opts   session.Options
}

var _ session.Registry = (*Registry)(nil)

// New creates a registry over client.
func New(client *redis.Client, opts ...session.Option) *Registry {
	return &Registry{
		client: client,
		rdb:    client.Unwrap(),
		meta:   redis.NewTypedStore[record](client, "session"),
		opts:   session.BuildOptions(opts...),
	}
}

func (r *Registry) chunksKey(id string) string   { return r.client.Key("session", id, "chunks") }
func (r *Registry) ownerKey(owner string) string { return r.client.Key("owner", owner, "sessions") }
func (r *Registry) allKey() string               { return r.client.Key("sessions") }

func (r *Registry) Create(ctx context.Context, patientID, ownerID string) (*session.Session, error) {
	if err := session.CheckCreate(patientID, ownerID); err != nil {
		return nil, err
	}
	now := r.opts.Now()
	rec := &record{
		ID:        r.opts.NewID(),
		PatientID: patientID,
		OwnerID:   ownerID,
		Status:    session.StatusRecording,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if err := r.meta.SaveTx(ctx, pipe, rec.ID, rec); err != nil {
			return err
		}
		pipe.RPush(ctx, r.ownerKey(ownerID), rec.ID)
		pipe.RPush(ctx, r.allKey(), rec.ID)
		return nil
	})
	if err != nil {
		return nil, session.StoreError(fmt.Errorf("create session: %w", err))
	}
	return rec.toSession(nil), nil
}

func (r *Registry) Get(ctx context.Context, id, ownerID string) (*session.Session, error) {
	rec, err := r.meta.Load(ctx, id)
	if err != nil {
		return nil, session.StoreError(err)
	}
	if rec == nil || rec.OwnerID != ownerID {
		return nil, session.ErrNotFound(id)
	}
	chunks, err := r.rdb.LRange(ctx, r.chunksKey(id), 0, -1).Result()
	if err != nil {
		return nil, session.StoreError(fmt.Errorf("load chunks %s: %w", id, err))
	}
	return rec.toSession(chunks), nil
}

func (r *Registry) ListByPatient(ctx context.Context, patientID, ownerID string) ([]*session.Session, error) {
	return r.list(ctx, r.ownerKey(ownerID), func(rec *record) bool {
		return rec.OwnerID == ownerID && rec.PatientID == patientID
	})
}

func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]*session.Session, error) {
	return r.list(ctx, r.ownerKey(ownerID), func(rec *record) bool { return rec.OwnerID == ownerID })
}

func (r *Registry) ListStale(ctx context.Context, olderThan time.Time) ([]*session.Session, error) {
	return r.list(ctx, r.allKey(), func(rec *record) bool {
		return rec.Status == session.StatusRecording && rec.UpdatedAt.Before(olderThan)
	})
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	n, err := r.rdb.LLen(ctx, r.allKey()).Result()
	if err != nil {
		return 0, session.StoreError(err)
	}
	return int(n), nil
}

func (r *Registry) AppendChunk(ctx context.Context, id, ownerID, locator string) error {
	return r.update(ctx, id, ownerID, func(_ *record, pipe goredis.Pipeliner) {
		pipe.RPush(ctx, r.chunksKey(id), locator)
	})
}

func (r *Registry) Complete(ctx context.Context, id, ownerID, transcript string) error {
	return r.update(ctx, id, ownerID, func(rec *record, _ goredis.Pipeliner) {
		rec.Status = session.StatusCompleted
		rec.Transcript = transcript
	})
}

// update applies fn to the metadata of an owned session under WATCH, retrying
// on concurrent modification.
func (r *Registry) update(ctx context.Context, id, ownerID string, fn func(*record, goredis.Pipeliner)) error {
	txf := func(tx *goredis.Tx) error {
		rec, err := r.meta.LoadTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec == nil || rec.OwnerID != ownerID {
			return session.ErrNotFound(id)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			fn(rec, pipe)
			rec.UpdatedAt = r.opts.Now()
			return r.meta.SaveTx(ctx, pipe, id, rec)
		})
		return err
	}

	for range maxTxRetries {
		err := r.rdb.Watch(ctx, txf, r.meta.Key(id))
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return session.StoreError(err)
	}
	return session.StoreError(fmt.Errorf("update session %s: too much contention", id))
}

func (r *Registry) list(ctx context.Context, indexKey string, keep func(*record) bool) ([]*session.Session, error) {
	ids, err := r.rdb.LRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, session.StoreError(err)
	}
	out := make([]*session.Session, 0)
	if len(ids) == 0 {
		return out, nil
	}

	metas := make([]*goredis.StringCmd, len(ids))
	chunks := make([]*goredis.StringSliceCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			metas[i] = pipe.Get(ctx, r.meta.Key(id))
			chunks[i] = pipe.LRange(ctx, r.chunksKey(id), 0, -1)
		}
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, session.StoreError(err)
	}

	for i := range ids {
		raw, err := metas[i].Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, session.StoreError(err)
		}
		var rec record
		if err := decode(raw, &rec); err != nil {
			return nil, session.StoreError(err)
		}
		if keep(&rec) {
			out = append(out, rec.toSession(chunks[i].Val()))
		}
	}
	return out, nil
}
