// Package transcription is the transcription gateway: it turns stored audio
// objects into text through a pluggable speech backend, one object at a time
// (batch mode) or as a single long-running job.
package transcription

import (
	"context"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/provider"
)

// Provider is a speech backend with a bounded synchronous call.
type Provider interface {
	provider.Provider
	Recognize(ctx context.Context, req Request) (*Response, error)
}

// LongRunningProvider is a backend that can also run asynchronous jobs.
type LongRunningProvider interface {
	Provider
	StartLongRunning(ctx context.Context, req Request) (*Operation, error)
	GetOperation(ctx context.Context, id string) (*Operation, error)
	CancelOperation(ctx context.Context, id string) error
}

// AudioSource reads audio bytes for a locator. *storage.Gateway implements it.
type AudioSource interface {
	GetObject(ctx context.Context, path string) ([]byte, error)
}

// Options is passed to backend factories. Backend carries the backend's config.
type Options struct {
	Backend any
	Log     *logger.Logger
}

var backends = provider.NewRegistry[Provider, Options]("transcription")

// Register makes a backend available to New. Backend packages call it from init.
func Register(name string, f provider.Factory[Provider, Options]) {
	backends.Register(name, f)
}

// New creates the backend registered as name.
func New(name string, opts Options) (Provider, error) {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	return backends.Create(name, opts)
}
