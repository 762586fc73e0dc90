// Package local stores objects on the filesystem. Since a directory cannot
// authorize uploads by itself, write grants are signed tokens redeemed by
// the service's PUT /blobs/{path} route.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/scribe/auth/jwt"
	"github.com/kbukum/scribe/storage"
)

const contentTypeSuffix = ".content-type"

func init() {
	storage.Register(storage.ProviderLocal, func(opts storage.Options) (storage.Storage, error) {
		c := &Config{}
		if opts.Backend != nil {
			pc, ok := opts.Backend.(*Config)
			if !ok {
				return nil, fmt.Errorf("local: expected *local.Config, got %T", opts.Backend)
			}
			c = pc
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewStorage(*c)
	})
}

// grantClaims binds a token to one object path and content type.
type grantClaims struct {
	gojwt.RegisteredClaims
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
}

func (c *grantClaims) SetDefaults(now time.Time, ttl time.Duration, issuer string, _ []string) {
	c.IssuedAt = gojwt.NewNumericDate(now)
	c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	c.Issuer = issuer
}

// Storage implements storage.Storage on the local filesystem.
type Storage struct {
	basePath  string
	publicURL string
	grants    *jwt.Service[*grantClaims]
}

var (
	_ storage.Storage          = (*Storage)(nil)
	_ storage.WriteGrantSigner = (*Storage)(nil)
	_ storage.GrantVerifier    = (*Storage)(nil)
)

// NewStorage creates the base directory and grant signer.
func NewStorage(cfg Config) (*Storage, error) {
	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("local: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("local: create base directory: %w", err)
	}
	grants, err := jwt.NewService(jwt.Config{Secret: cfg.GrantSecret, Issuer: "scribe-blobs"}, func() *grantClaims { return &grantClaims{} })
	if err != nil {
		return nil, fmt.Errorf("local: grant signer: %w", err)
	}
	return &Storage{basePath: abs, publicURL: cfg.PublicURL, grants: grants}, nil
}

func (s *Storage) fullPath(p string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(p)) {
		return "", fmt.Errorf("local: path %q escapes base directory", p)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(p)), nil
}

// Put writes through a temp file and renames so readers never see partial objects.
func (s *Storage) Put(_ context.Context, p string, r io.Reader, contentType string) error {
	full, err := s.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("local: create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("local: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("local: write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("local: close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("local: rename file: %w", err)
	}
	if contentType != "" {
		if err := os.WriteFile(full+contentTypeSuffix, []byte(contentType), 0o640); err != nil {
			return fmt.Errorf("local: write content type: %w", err)
		}
	}
	return nil
}

// Get opens the file at p.
func (s *Storage) Get(_ context.Context, p string) (io.ReadCloser, error) {
	full, err := s.fullPath(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("local: %s: %w", p, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("local: open file: %w", err)
	}
	return f, nil
}

// Delete removes p. Missing files are not an error.
func (s *Storage) Delete(_ context.Context, p string) error {
	full, err := s.fullPath(p)
	if err != nil {
		return err
	}
	for _, f := range []string{full, full + contentTypeSuffix} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("local: delete file: %w", err)
		}
	}
	return nil
}

// Exists checks whether p exists.
func (s *Storage) Exists(_ context.Context, p string) (bool, error) {
	full, err := s.fullPath(p)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("local: stat file: %w", err)
	}
	return true, nil
}

// List returns files whose slash path starts with prefix.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	err := filepath.WalkDir(s.basePath, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasSuffix(name, contentTypeSuffix) || strings.HasPrefix(name, ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		ct, _ := os.ReadFile(full + contentTypeSuffix)
		out = append(out, storage.ObjectInfo{Path: rel, Size: info.Size(), ContentType: string(ct), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local: list files: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SignWrite returns {PublicURL}/blobs/{path}?grant={token}.
func (s *Storage) SignWrite(_ context.Context, p, contentType string, ttl time.Duration) (string, error) {
	if _, err := s.fullPath(p); err != nil {
		return "", err
	}
	token, err := s.grants.GenerateWithTTL(&grantClaims{Path: p, ContentType: contentType}, ttl)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/blobs/%s?grant=%s", s.publicURL, p, url.QueryEscape(token)), nil
}

// VerifyWrite checks a grant token and returns what it authorizes.
func (s *Storage) VerifyWrite(_ context.Context, token string) (*storage.Grant, error) {
	claims, err := s.grants.Parse(token)
	if err != nil {
		return nil, err
	}
	g := &storage.Grant{Path: claims.Path, ContentType: claims.ContentType}
	if claims.ExpiresAt != nil {
		g.ExpiresAt = claims.ExpiresAt.Time
	}
	return g, nil
}
