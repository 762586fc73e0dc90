// Package recording orchestrates a session's lifecycle: upload targets for
// chunks, chunk arrival, once-only completion with transcription, and the
// standalone whole-file transcription path.
package recording

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/session"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/validation"
)

const transcriptContentType = "text/plain; charset=utf-8"

// BlobStore is the part of the blob store gateway the orchestrator uses.
type BlobStore interface {
	IssueWriteGrant(ctx context.Context, objectPath, contentType string, ttl time.Duration) (*storage.WriteGrant, error)
	PutObject(ctx context.Context, objectPath string, data []byte, contentType string) error
}

// Transcriber is the part of the transcription gateway the orchestrator uses.
type Transcriber interface {
	RecognizeBatch(ctx context.Context, locators []string) (*transcription.BatchResult, error)
	TranscribeLongRunning(ctx context.Context, locator string) (string, error)
}

// UploadTarget is where a client uploads one chunk, and the locator it
// reports back once the upload is done.
type UploadTarget struct {
	URL       string    `json:"presignedUrl"`
	Locator   string    `json:"locator"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Ack acknowledges a chunk notification.
type Ack struct {
	SessionID string `json:"sessionId"`
	Locator   string `json:"locator"`
	Chunks    int    `json:"chunks"`
	Completed bool   `json:"completed"`
	// AlreadyCompleting is set when another notification is completing the session.
	AlreadyCompleting bool `json:"alreadyCompleting,omitempty"`
	// Duplicate is set when a completed session is notified again of a chunk it holds.
	Duplicate  bool   `json:"duplicate,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithEventPublisher sets the completion event sink.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithMeter sets the meter for the service counters.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.meter = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the session orchestrator.
type Service struct {
	sessions    session.Registry
	blobs       BlobStore
	transcriber Transcriber
	events      EventPublisher
	cfg         Config
	log         *logger.Logger
	locks       *sessionLocks
	meter       metric.Meter
	metrics     *instruments
	now         func() time.Time
}

// NewService wires the orchestrator to its collaborators.
func NewService(sessions session.Registry, blobs BlobStore, transcriber Transcriber, cfg Config, log *logger.Logger, opts ...Option) *Service {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		sessions:    sessions,
		blobs:       blobs,
		transcriber: transcriber,
		events:      nopPublisher{},
		cfg:         cfg,
		log:         log.WithComponent("recording"),
		locks:       newSessionLocks(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newInstruments(s.meter)
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// StartSession creates a session in the recording state and returns its id.
func (s *Service) StartSession(ctx context.Context, patientID, ownerID string) (_ string, err error) {
	ctx, span := observability.StartSpan(ctx, "recording.StartSession",
		attribute.String(observability.AttrPatientID, patientID),
		attribute.String(observability.AttrOwnerID, ownerID))
	defer func() { observability.EndSpan(span, err) }()

	sess, err := s.sessions.Create(ctx, patientID, ownerID)
	if err != nil {
		return "", err
	}
	s.metrics.sessionsStarted.Add(ctx, 1)
	s.log.WithContext(ctx).Info("session started", logger.Fields(
		logger.FieldSessionID, sess.ID,
		logger.FieldPatientID, patientID,
	))
	return sess.ID, nil
}

// GetSession returns the caller's session.
func (s *Service) GetSession(ctx context.Context, sessionID, ownerID string) (*session.Session, error) {
	return s.guard(ctx, sessionID, ownerID)
}

// ListByPatient returns the caller's sessions for a patient in creation order.
func (s *Service) ListByPatient(ctx context.Context, patientID, ownerID string) ([]*session.Session, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, apperrors.InvalidInput("patientId", "is required")
	}
	return s.sessions.ListByPatient(ctx, patientID, ownerID)
}

// ListByOwner returns the caller's sessions in creation order.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*session.Session, error) {
	return s.sessions.ListByOwner(ctx, ownerID)
}

// guard is the single owner-scoped lookup used by every session-id operation.
// A session owned by someone else is NOT_FOUND.
func (s *Service) guard(ctx context.Context, sessionID, ownerID string) (*session.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.InvalidInput("sessionId", "is required")
	}
	if ownerID == "" {
		return nil, session.ErrNotFound(sessionID)
	}
	return s.sessions.Get(ctx, sessionID, ownerID)
}

// RequestChunkUploadTarget issues a write grant at the chunk's deterministic
// path. The session is not modified.
func (s *Service) RequestChunkUploadTarget(ctx context.Context, sessionID, ownerID string, chunkNumber int, mimeType string) (_ *UploadTarget, err error) {
	ctx, span := observability.StartSpan(ctx, "recording.RequestChunkUploadTarget",
		attribute.String(observability.AttrSessionID, sessionID),
		attribute.Int(observability.AttrChunkNumber, chunkNumber))
	defer func() { observability.EndSpan(span, err) }()

	if verr := validation.New().
		NonNegative("chunkNumber", chunkNumber).
		MIMEType("mimeType", mimeType).
		Validate(); verr != nil {
		return nil, verr
	}
	sess, err := s.guard(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}
	if sess.Completed() {
		return nil, apperrors.Conflict("The session is already completed.").WithDetail("sessionId", sessionID)
	}

	locator := ChunkPath(sess.ID, chunkNumber, mimeType)
	grant, err := s.blobs.IssueWriteGrant(ctx, locator, mimeType, s.cfg.GrantTTL)
	if err != nil {
		return nil, err
	}
	return &UploadTarget{URL: grant.URL, Locator: locator, ExpiresAt: grant.ExpiresAt}, nil
}

// NotifyChunkUploaded records that the chunk at locator has been uploaded.
// When isLast is set the session is transcribed and completed, at most once,
// on a context that outlives the caller's.
func (s *Service) NotifyChunkUploaded(ctx context.Context, sessionID, ownerID, locator string, isLast bool) (_ *Ack, err error) {
	ctx, span := observability.StartSpan(ctx, "recording.NotifyChunkUploaded",
		attribute.String(observability.AttrSessionID, sessionID),
		attribute.String(observability.AttrLocator, locator),
		attribute.Bool("scribe.chunk.last", isLast))
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(locator) == "" {
		return nil, apperrors.InvalidInput("locator", "is required")
	}

	st := s.locks.acquire(sessionID)
	sess, err := s.guard(ctx, sessionID, ownerID)
	if err != nil {
		s.locks.release(sessionID, st)
		return nil, err
	}
	if _, ok := ChunkNumber(locator); !ok || !BelongsTo(locator, sess.ID) {
		s.locks.release(sessionID, st)
		return nil, apperrors.InvalidInput("locator", "does not belong to the session")
	}

	ack := &Ack{SessionID: sess.ID, Locator: locator, Chunks: len(sess.Chunks)}
	switch {
	case sess.Completed():
		s.locks.release(sessionID, st)
		if contains(sess.Chunks, locator) {
			ack.Completed, ack.Duplicate, ack.Transcript = true, true, sess.Transcript
			return ack, nil
		}
		return nil, apperrors.Conflict("The session is already completed.").WithDetail("sessionId", sessionID)
	case st.completing:
		s.locks.release(sessionID, st)
		if isLast {
			ack.AlreadyCompleting = true
			return ack, nil
		}
		return nil, apperrors.Conflict("The session is being completed.").WithDetail("sessionId", sessionID)
	}

	if err := s.sessions.AppendChunk(ctx, sess.ID, ownerID, locator); err != nil {
		s.locks.release(sessionID, st)
		return nil, err
	}
	sess.Chunks = append(sess.Chunks, locator)
	ack.Chunks = len(sess.Chunks)
	s.metrics.chunksReceived.Add(ctx, 1)
	log := s.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldSessionID, sess.ID))
	log.Debug("chunk recorded", logger.Fields(logger.FieldLocator, locator, "chunks", ack.Chunks))

	if !isLast {
		s.locks.release(sessionID, st)
		return ack, nil
	}

	st.completing = true
	s.locks.release(sessionID, st)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompletionTimeout)
	defer cancel()
	transcript, err := s.complete(cctx, sess, false)
	if err != nil {
		return nil, err
	}
	ack.Completed, ack.Transcript = true, transcript
	return ack, nil
}

// complete transcribes sess.Chunks, stores the transcript object and commits
// the completion. The caller must have set the session's completing flag.
func (s *Service) complete(ctx context.Context, sess *session.Session, reaped bool) (string, error) {
	log := s.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldSessionID, sess.ID))
	start := s.now()

	locators := Order(sess.Chunks, s.cfg.ChunkOrder)
	transcript := ""
	failedObjects, batchFailed := 0, false
	if len(locators) > 0 {
		res, err := s.transcriber.RecognizeBatch(ctx, locators)
		if err != nil {
			log.Error("batch transcription failed", logger.Fields(logger.FieldError, err.Error(), "chunks", len(locators)))
			transcript, batchFailed = transcription.FailedSentinel, true
		} else {
			transcript, failedObjects = res.Text(), res.Failed
		}
	}

	if err := s.blobs.PutObject(ctx, TranscriptPath(sess.ID), []byte(transcript), transcriptContentType); err != nil {
		log.Warn("failed to store transcript object", logger.Fields(logger.FieldError, err.Error()))
	}

	st := s.locks.acquire(sess.ID)
	err := s.sessions.Complete(ctx, sess.ID, sess.OwnerID, transcript)
	st.completing = false
	s.locks.release(sess.ID, st)
	if err != nil {
		log.Error("failed to commit completion", logger.Fields(logger.FieldError, err.Error()))
		return "", err
	}

	s.metrics.completed(ctx, reaped, failedObjects, batchFailed)
	log.Info("session completed", logger.Fields(
		"chunks", len(locators),
		"failed_chunks", failedObjects,
		"transcript_failed", batchFailed,
		"reaped", reaped,
		logger.FieldDuration, s.now().Sub(start).Milliseconds(),
	))

	evt := CompletionEvent{
		SessionID:        sess.ID,
		OwnerID:          sess.OwnerID,
		PatientID:        sess.PatientID,
		Chunks:           len(locators),
		FailedChunks:     failedObjects,
		TranscriptFailed: batchFailed,
		Reaped:           reaped,
		CompletedAt:      s.now().UTC(),
	}
	if err := s.events.PublishCompleted(ctx, evt); err != nil {
		log.Warn("failed to publish completion event", logger.Fields(logger.FieldError, err.Error()))
	}
	return transcript, nil
}

// TranscribeWholeFile stores audio under the owner's namespace and
// transcribes it as a long-running job. No session is created.
func (s *Service) TranscribeWholeFile(ctx context.Context, ownerID string, audio []byte, mimeType string) (_ string, err error) {
	ctx, span := observability.StartSpan(ctx, "recording.TranscribeWholeFile",
		attribute.String(observability.AttrOwnerID, ownerID),
		attribute.Int("scribe.audio.bytes", len(audio)))
	defer func() { observability.EndSpan(span, err) }()

	if verr := validation.New().
		Required("userId", ownerID).
		Custom(len(audio) > 0, "audio", "no audio file uploaded").
		MaxBytes("audio", int64(len(audio)), s.cfg.MaxWholeFileBytes).
		Validate(); verr != nil {
		return "", verr.WithDetail("limit", s.cfg.MaxWholeFileBytes)
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "application/octet-stream"
	}

	locator := WholeFilePath(ownerID, s.now(), mimeType)
	if err := s.blobs.PutObject(ctx, locator, audio, mimeType); err != nil {
		return "", err
	}
	text, err := s.transcriber.TranscribeLongRunning(ctx, locator)
	if err != nil {
		s.metrics.transcriptionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", "whole_file")))
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeTranscriptionFailed {
			return "", err
		}
		return "", apperrors.TranscriptionFailure("", err)
	}
	s.log.WithContext(ctx).Info("whole file transcribed", logger.Fields(logger.FieldLocator, locator, "bytes", len(audio)))
	return text, nil
}

// ReapAbandoned completes recording sessions idle since before now minus
// AbandonAfter, through the same once-only completion path. It returns the
// number of sessions completed. Reaping is disabled when AbandonAfter is zero.
func (s *Service) ReapAbandoned(ctx context.Context, now time.Time) (int, error) {
	if s.cfg.AbandonAfter <= 0 {
		return 0, nil
	}
	stale, err := s.sessions.ListStale(ctx, now.Add(-s.cfg.AbandonAfter))
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, candidate := range stale {
		if err := ctx.Err(); err != nil {
			return reaped, err
		}
		ok, err := s.reapOne(ctx, candidate)
		if err != nil {
			s.log.Warn("failed to reap session", logger.Fields(logger.FieldSessionID, candidate.ID, logger.FieldError, err.Error()))
			continue
		}
		if ok {
			reaped++
		}
	}
	return reaped, nil
}

func (s *Service) reapOne(ctx context.Context, candidate *session.Session) (bool, error) {
	st := s.locks.acquire(candidate.ID)
	sess, err := s.sessions.Get(ctx, candidate.ID, candidate.OwnerID)
	if err != nil || sess.Completed() || st.completing {
		s.locks.release(candidate.ID, st)
		return false, err
	}
	st.completing = true
	s.locks.release(candidate.ID, st)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompletionTimeout)
	defer cancel()
	if _, err := s.complete(cctx, sess, true); err != nil {
		return false, err
	}
	return true, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
