package session

import (
	"context"
	"fmt"
	"time"
)

// Cipher encrypts and decrypts transcripts. *encryption.AEAD implements it.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SealedRegistry wraps a Registry so transcripts are stored encrypted.
// Callers see plaintext; the wrapped registry only ever holds ciphertext.
type SealedRegistry struct {
	inner  Registry
	cipher Cipher
}

var _ Registry = (*SealedRegistry)(nil)

// NewSealedRegistry wraps inner.
func NewSealedRegistry(inner Registry, c Cipher) *SealedRegistry {
	return &SealedRegistry{inner: inner, cipher: c}
}

func (r *SealedRegistry) Create(ctx context.Context, patientID, ownerID string) (*Session, error) {
	return r.inner.Create(ctx, patientID, ownerID)
}

func (r *SealedRegistry) Get(ctx context.Context, id, ownerID string) (*Session, error) {
	s, err := r.inner.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := r.open(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SealedRegistry) ListByPatient(ctx context.Context, patientID, ownerID string) ([]*Session, error) {
	return r.openAll(r.inner.ListByPatient(ctx, patientID, ownerID))
}

func (r *SealedRegistry) ListByOwner(ctx context.Context, ownerID string) ([]*Session, error) {
	return r.openAll(r.inner.ListByOwner(ctx, ownerID))
}

func (r *SealedRegistry) AppendChunk(ctx context.Context, id, ownerID, locator string) error {
	return r.inner.AppendChunk(ctx, id, ownerID, locator)
}

// Complete encrypts transcript before handing it to the wrapped registry.
func (r *SealedRegistry) Complete(ctx context.Context, id, ownerID, transcript string) error {
	sealed, err := r.cipher.Encrypt(transcript)
	if err != nil {
		return fmt.Errorf("seal transcript: %w", err)
	}
	return r.inner.Complete(ctx, id, ownerID, sealed)
}

// ListStale returns recording sessions, which have no transcript yet.
func (r *SealedRegistry) ListStale(ctx context.Context, olderThan time.Time) ([]*Session, error) {
	return r.inner.ListStale(ctx, olderThan)
}

func (r *SealedRegistry) Count(ctx context.Context) (int, error) {
	return r.inner.Count(ctx)
}

func (r *SealedRegistry) open(s *Session) error {
	if s.Transcript == "" {
		return nil
	}
	plain, err := r.cipher.Decrypt(s.Transcript)
	if err != nil {
		return fmt.Errorf("open transcript of session %s: %w", s.ID, err)
	}
	s.Transcript = plain
	return nil
}

func (r *SealedRegistry) openAll(list []*Session, err error) ([]*Session, error) {
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		if err := r.open(s); err != nil {
			return nil, err
		}
	}
	return list, nil
}
