// Package storage is the blob store gateway. Audio chunks, whole-file
// uploads and transcripts live in an object store behind the Storage
// interface; clients upload chunk bytes directly using short-lived write
// grants so audio never flows through this service.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by backends when an object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage is implemented by each object store backend.
type Storage interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	// Get returns ErrNotFound (possibly wrapped) for missing objects.
	// The caller closes the returned reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// WriteGrantSigner issues pre-authorized upload URLs.
type WriteGrantSigner interface {
	SignWrite(ctx context.Context, path, contentType string, ttl time.Duration) (string, error)
}

// Grant describes a verified write grant.
type Grant struct {
	Path        string
	ContentType string
	ExpiresAt   time.Time
}

// GrantVerifier is implemented by backends whose write grants are redeemed
// through this service rather than directly at the store.
type GrantVerifier interface {
	VerifyWrite(ctx context.Context, token string) (*Grant, error)
}

// CleanPath validates an object path: relative, slash separated, no dot segments.
func CleanPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("storage: empty object path")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("storage: object path %q must be relative", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("storage: object path %q has an invalid segment", p)
		}
	}
	return path.Clean(p), nil
}
