// Package session holds the recording session model and the registry that
// stores sessions scoped to their owning clinician.
package session

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session. It only moves forward.
type Status string

const (
	StatusRecording Status = "recording"
	StatusCompleted Status = "completed"
)

// Session is one recording session. OwnerID is serialized as "userId".
type Session struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patientId"`
	OwnerID    string    `json:"userId"`
	Status     Status    `json:"status"`
	Chunks     []string  `json:"chunks"`
	Transcript string    `json:"transcript"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Chunks = slices.Clone(s.Chunks)
	if c.Chunks == nil {
		c.Chunks = []string{}
	}
	return &c
}

// Completed reports whether the session reached its terminal state.
func (s *Session) Completed() bool { return s.Status == StatusCompleted }

// Registry stores sessions. Every lookup by id is scoped to ownerID: a session
// owned by someone else is indistinguishable from a missing one (NOT_FOUND).
// Returned sessions are copies.
type Registry interface {
	Create(ctx context.Context, patientID, ownerID string) (*Session, error)
	Get(ctx context.Context, id, ownerID string) (*Session, error)
	// ListByPatient and ListByOwner return sessions in creation order.
	ListByPatient(ctx context.Context, patientID, ownerID string) ([]*Session, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Session, error)
	// AppendChunk atomically appends locator to the session's chunk list.
	AppendChunk(ctx context.Context, id, ownerID, locator string) error
	// Complete marks the session completed and sets its transcript. Repeated
	// calls overwrite the transcript; the status never reverts.
	Complete(ctx context.Context, id, ownerID, transcript string) error
	// ListStale returns recording sessions not updated since olderThan.
	ListStale(ctx context.Context, olderThan time.Time) ([]*Session, error)
	Count(ctx context.Context) (int, error)
}

// Options are shared by registry implementations.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

// Option configures a registry.
type Option func(*Options)

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Options) { o.NewID = fn }
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
