package storage

import (
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/provider"
)

// Options is passed to backend factories. Backend carries the
// provider-specific config (*s3.Config, *local.Config, ...).
type Options struct {
	Config  Config
	Backend any
	Log     *logger.Logger
}

var backends = provider.NewRegistry[Storage, Options]("storage")

// Register makes a backend available to New. Backend packages call it from init.
func Register(name string, f provider.Factory[Storage, Options]) {
	backends.Register(name, f)
}

// New creates the backend selected by opts.Config.Provider.
func New(opts Options) (Storage, error) {
	opts.Config.ApplyDefaults()
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	return backends.Create(opts.Config.Provider, opts)
}
