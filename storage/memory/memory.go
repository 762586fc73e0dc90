// Package memory is an in-process storage backend for development and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/scribe/storage"
)

func init() {
	storage.Register(storage.ProviderMemory, func(storage.Options) (storage.Storage, error) {
		return New(), nil
	})
}

type object struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// Storage keeps objects in a map. Failures can be injected per operation.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]*object
	faults  map[string]error
	now     func() time.Time
}

var (
	_ storage.Storage          = (*Storage)(nil)
	_ storage.WriteGrantSigner = (*Storage)(nil)
)

// New creates an empty store.
func New() *Storage {
	return &Storage{
		objects: make(map[string]*object),
		faults:  make(map[string]error),
		now:     time.Now,
	}
}

// Fail makes every subsequent call of op ("put", "get", "sign", "exists",
// "delete", "list") return err. A nil err clears the fault.
func (s *Storage) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Storage) fault(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.faults[op]
}

// Put stores the reader's bytes.
func (s *Storage) Put(_ context.Context, path string, r io.Reader, contentType string) error {
	if err := s.fault("put"); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memory: read body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = &object{data: data, contentType: contentType, modTime: s.now()}
	return nil
}

// Get returns a copy of the stored bytes.
func (s *Storage) Get(_ context.Context, path string) (io.ReadCloser, error) {
	if err := s.fault("get"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("memory: %s: %w", path, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

// Delete removes path. Missing objects are not an error.
func (s *Storage) Delete(_ context.Context, path string) error {
	if err := s.fault("delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

// Exists reports whether path is stored.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	if err := s.fault("exists"); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok, nil
}

// List returns objects under prefix sorted by path.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	if err := s.fault("list"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.ObjectInfo
	for p, obj := range s.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, storage.ObjectInfo{Path: p, Size: int64(len(obj.data)), ContentType: obj.contentType, LastModified: obj.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SignWrite returns a memory:// URL. It authorizes nothing; the store is in-process.
func (s *Storage) SignWrite(_ context.Context, path, contentType string, ttl time.Duration) (string, error) {
	if err := s.fault("sign"); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("contentType", contentType)
	q.Set("expires", fmt.Sprintf("%d", s.now().Add(ttl).Unix()))
	return (&url.URL{Scheme: "memory", Path: "/" + path, RawQuery: q.Encode()}).String(), nil
}

// ContentType returns the stored content type of path.
func (s *Storage) ContentType(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return "", false
	}
	return obj.contentType, true
}
