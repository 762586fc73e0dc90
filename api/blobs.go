package api

import (
	"mime"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/server/middleware"
	"github.com/kbukum/scribe/storage"
)

// BlobHandler redeems write grants issued by backends that route uploads
// through this service, such as the local filesystem store.
type BlobHandler struct {
	store    storage.Storage
	verifier storage.GrantVerifier
	log      *logger.Logger
}

// NewBlobHandler returns nil when store does not verify its own grants.
func NewBlobHandler(store storage.Storage, log *logger.Logger) *BlobHandler {
	verifier, ok := store.(storage.GrantVerifier)
	if !ok {
		return nil
	}
	return &BlobHandler{store: store, verifier: verifier, log: log.WithComponent("blobs")}
}

// Register mounts PUT /blobs/*path. The grant authorizes the request, so the
// route sits outside bearer authentication.
func (b *BlobHandler) Register(r gin.IRoutes) {
	r.PUT("/blobs/*path", b.put)
}

func (b *BlobHandler) put(c *gin.Context) {
	token := c.Query("grant")
	if token == "" {
		server.RespondWithError(c, apperrors.Unauthorized("Missing upload grant."))
		return
	}
	grant, err := b.verifier.VerifyWrite(c.Request.Context(), token)
	if err != nil {
		server.RespondWithError(c, apperrors.Unauthorized("Invalid or expired upload grant."))
		return
	}
	p := strings.TrimPrefix(c.Param("path"), "/")
	if p != grant.Path {
		server.RespondWithError(c, apperrors.Unauthorized("The upload grant does not cover this path."))
		return
	}

	ct := c.GetHeader("Content-Type")
	if grant.ContentType != "" && !sameMediaType(ct, grant.ContentType) {
		server.RespondWithError(c, apperrors.InvalidInput("Content-Type", "must match the upload grant").
			WithDetail("expected", grant.ContentType))
		return
	}

	if err := b.store.Put(c.Request.Context(), p, c.Request.Body, ct); err != nil {
		if limit, ok := middleware.IsBodyTooLarge(err); ok {
			server.RespondWithError(c, apperrors.PayloadTooLarge(limit))
			return
		}
		b.log.WithContext(c.Request.Context()).Error("blob upload failed", logger.Fields(logger.FieldPath, p, logger.FieldError, err.Error()))
		server.RespondWithError(c, apperrors.StoreUnavailable("put", p, err))
		return
	}
	server.RespondNoContent(c)
}

func sameMediaType(a, b string) bool {
	ma, _, errA := mime.ParseMediaType(a)
	mb, _, errB := mime.ParseMediaType(b)
	return errA == nil && errB == nil && ma == mb
}
