package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
)

// WriteGrant is a pre-authorized upload target.
type WriteGrant struct {
	URL         string    `json:"url"`
	Path        string    `json:"path"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Gateway wraps a backend with the service's policies: default grant TTL,
// object size cap, path validation and error translation. Every backend
// failure surfaces as STORE_UNAVAILABLE.
type Gateway struct {
	store   Storage
	signer  WriteGrantSigner
	ttl     time.Duration
	maxSize int64
	log     *logger.Logger
	now     func() time.Time
}

// NewGateway wraps store. The backend must be able to sign write grants.
func NewGateway(store Storage, cfg Config, log *logger.Logger) (*Gateway, error) {
	cfg.ApplyDefaults()
	signer, ok := store.(WriteGrantSigner)
	if !ok {
		return nil, fmt.Errorf("storage: backend %T cannot issue write grants", store)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{
		store:   store,
		signer:  signer,
		ttl:     cfg.GrantTTL,
		maxSize: cfg.MaxObjectSizeBytes(),
		log:     log.WithComponent("blobstore"),
		now:     time.Now,
	}, nil
}

// Storage returns the wrapped backend.
func (g *Gateway) Storage() Storage { return g.store }

// IssueWriteGrant returns an upload URL for objectPath valid for ttl.
// A non-positive ttl uses the configured default.
func (g *Gateway) IssueWriteGrant(ctx context.Context, objectPath, contentType string, ttl time.Duration) (*WriteGrant, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, apperrors.InvalidInput("path", err.Error())
	}
	if ttl <= 0 {
		ttl = g.ttl
	}
	expires := g.now().Add(ttl)
	url, err := g.signer.SignWrite(ctx, p, contentType, ttl)
	if err != nil {
		g.log.Error("write grant failed", logger.Fields(logger.FieldPath, p, logger.FieldError, err.Error()))
		return nil, apperrors.StoreUnavailable("sign", p, err)
	}
	return &WriteGrant{URL: url, Path: p, ContentType: contentType, ExpiresAt: expires}, nil
}

// PutObject writes data at objectPath.
func (g *Gateway) PutObject(ctx context.Context, objectPath string, data []byte, contentType string) error {
	p, err := CleanPath(objectPath)
	if err != nil {
		return apperrors.InvalidInput("path", err.Error())
	}
	if g.maxSize > 0 && int64(len(data)) > g.maxSize {
		return apperrors.PayloadTooLarge(g.maxSize)
	}
	if err := g.store.Put(ctx, p, bytes.NewReader(data), contentType); err != nil {
		g.log.Error("put failed", logger.Fields(logger.FieldPath, p, logger.FieldError, err.Error()))
		return apperrors.StoreUnavailable("put", p, err)
	}
	g.log.Debug("object stored", logger.Fields(logger.FieldPath, p, "bytes", len(data)))
	return nil
}

// GetObject reads the object at objectPath.
func (g *Gateway) GetObject(ctx context.Context, objectPath string) ([]byte, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, apperrors.InvalidInput("path", err.Error())
	}
	rc, err := g.store.Get(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.NotFound("object", p).WithCause(err)
		}
		return nil, apperrors.StoreUnavailable("get", p, err)
	}
	defer rc.Close() //nolint:errcheck // read-only

	r := io.Reader(rc)
	if g.maxSize > 0 {
		r = io.LimitReader(rc, g.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.StoreUnavailable("get", p, err)
	}
	if g.maxSize > 0 && int64(len(data)) > g.maxSize {
		return nil, apperrors.PayloadTooLarge(g.maxSize)
	}
	return data, nil
}
