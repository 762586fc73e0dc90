// Package api exposes the session orchestrator over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/auth/authctx"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/recording"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/server/middleware"
	"github.com/kbukum/scribe/session"
	"github.com/kbukum/scribe/validation"
)

// Orchestrator is the recording service as seen by the handlers.
type Orchestrator interface {
	StartSession(ctx context.Context, patientID, ownerID string) (string, error)
	GetSession(ctx context.Context, sessionID, ownerID string) (*session.Session, error)
	ListByPatient(ctx context.Context, patientID, ownerID string) ([]*session.Session, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*session.Session, error)
	RequestChunkUploadTarget(ctx context.Context, sessionID, ownerID string, chunkNumber int, mimeType string) (*recording.UploadTarget, error)
	NotifyChunkUploaded(ctx context.Context, sessionID, ownerID, locator string, isLast bool) (*recording.Ack, error)
	TranscribeWholeFile(ctx context.Context, ownerID string, audio []byte, mimeType string) (string, error)
}

var _ Orchestrator = (*recording.Service)(nil)

// Handler serves the session routes.
type Handler struct {
	svc       Orchestrator
	maxUpload int64
	log       *logger.Logger
}

// NewHandler creates a handler. maxUpload caps whole-file uploads read into
// memory; larger bodies are passed on truncated by one byte so the service
// rejects them.
func NewHandler(svc Orchestrator, maxUpload int64, log *logger.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = recording.DefaultMaxWholeFileBytes
	}
	return &Handler{svc: svc, maxUpload: maxUpload, log: log.WithComponent("api")}
}

// Register mounts the authenticated routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/upload-session", h.startSession)
	r.GET("/fetch-session-by-patient/:patientId", h.listByPatient)
	r.GET("/all-session", h.listByOwner)
	r.GET("/sessions/:id", h.getSession)
	r.POST("/get-presigned-url", h.uploadTarget)
	r.POST("/notify-chunk-uploaded", h.notifyChunk)
	r.POST("/transcribe", h.transcribe)
}

func caller(c *gin.Context) (string, bool) {
	id, err := authctx.Identity(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, apperrors.Unauthorized(""))
		return "", false
	}
	return id.UserID, true
}

// bind decodes a JSON body into req and validates its tags.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if limit, ok := middleware.IsBodyTooLarge(err); ok {
			server.RespondWithError(c, apperrors.PayloadTooLarge(limit))
			return false
		}
		server.RespondWithError(c, apperrors.InvalidInput("body", "must be a JSON object"))
		return false
	}
	if err := validation.Validate(req); err != nil {
		server.RespondWithError(c, err)
		return false
	}
	return true
}

func sessionsOrEmpty(list []*session.Session) []*session.Session {
	if list == nil {
		return []*session.Session{}
	}
	return list
}

func (h *Handler) startSession(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req startSessionRequest
	if !bind(c, &req) {
		return
	}
	id, err := h.svc.StartSession(c.Request.Context(), req.PatientID, owner)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"id": id})
}

func (h *Handler) listByPatient(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	list, err := h.svc.ListByPatient(c.Request.Context(), c.Param("patientId"), owner)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"sessions": sessionsOrEmpty(list)})
}

func (h *Handler) listByOwner(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	list, err := h.svc.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"sessions": sessionsOrEmpty(list)})
}

func (h *Handler) getSession(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	sess, err := h.svc.GetSession(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"session": sess})
}

func (h *Handler) uploadTarget(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req uploadTargetRequest
	if !bind(c, &req) {
		return
	}
	target, err := h.svc.RequestChunkUploadTarget(c.Request.Context(), req.SessionID, owner, *req.ChunkNumber, req.MimeType)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, target)
}

func (h *Handler) notifyChunk(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req notifyChunkRequest
	if !bind(c, &req) {
		return
	}
	ack, err := h.svc.NotifyChunkUploaded(c.Request.Context(), req.SessionID, owner, req.Locator, *req.IsLast)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"ack": ack})
}

// transcribe accepts either a multipart form with an "audio" file or the raw
// audio as the request body.
func (h *Handler) transcribe(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}

	audio, mimeType, err := h.readAudio(c)
	if err != nil {
		if limit, ok := middleware.IsBodyTooLarge(err); ok {
			server.RespondWithError(c, apperrors.PayloadTooLarge(limit))
			return
		}
		server.RespondWithError(c, err)
		return
	}
	text, err := h.svc.TranscribeWholeFile(c.Request.Context(), owner, audio, mimeType)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"transcript": text})
}

func (h *Handler) readAudio(c *gin.Context) ([]byte, string, error) {
	ct := c.GetHeader("Content-Type")
	mt, _, _ := mime.ParseMediaType(ct)

	var (
		r        io.Reader
		mimeType string
	)
	if mt == "multipart/form-data" {
		fh, err := c.FormFile("audio")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, "", apperrors.InvalidInput("audio", "no audio file uploaded")
			}
			return nil, "", err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", apperrors.Internal(err)
		}
		defer f.Close() //nolint:errcheck // read-only
		r, mimeType = f, fh.Header.Get("Content-Type")
	} else {
		r, mimeType = c.Request.Body, ct
	}

	data, err := io.ReadAll(io.LimitReader(r, h.maxUpload+1))
	if err != nil {
		return nil, "", err
	}
	return data, strings.TrimSpace(mimeType), nil
}
