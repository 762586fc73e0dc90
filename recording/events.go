package recording

import (
	"context"
	"time"
)

// EventCompleted is the type of the event published when a session completes.
const EventCompleted = "session.completed"

// CompletionEvent describes a committed completion.
type CompletionEvent struct {
	SessionID string    `json:"sessionId"`
	OwnerID   string    `json:"userId"`
	PatientID string    `json:"patientId"`
	Chunks    int       `json:"chunks"`
	// FailedChunks counts chunks replaced by the failure sentinel.
	FailedChunks int `json:"failedChunks"`
	// TranscriptFailed is set when the whole batch failed.
	TranscriptFailed bool      `json:"transcriptFailed"`
	Reaped           bool      `json:"reaped"`
	CompletedAt      time.Time `json:"completedAt"`
}

// EventPublisher receives completion events. Errors are logged by the caller
// and never fail the completion.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, evt CompletionEvent) error
}

// EventPublisherFunc adapts a function to EventPublisher.
type EventPublisherFunc func(ctx context.Context, evt CompletionEvent) error

func (f EventPublisherFunc) PublishCompleted(ctx context.Context, evt CompletionEvent) error {
	return f(ctx, evt)
}

type nopPublisher struct{}

func (nopPublisher) PublishCompleted(context.Context, CompletionEvent) error { return nil }
