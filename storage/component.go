package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

const healthProbePath = ".health"

// Component builds the configured backend and gateway at start.
type Component struct {
	opts    Options
	store   Storage
	gateway *Gateway
	log     *logger.Logger
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a storage component for the component registry.
func NewComponent(cfg Config, backendCfg any, log *logger.Logger) *Component {
	return &Component{
		opts: Options{Config: cfg, Backend: backendCfg, Log: log},
		log:  log.WithComponent("storage"),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start creates the backend and gateway.
func (c *Component) Start(_ context.Context) error {
	store, err := New(c.opts)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	gw, err := NewGateway(store, c.opts.Config, c.opts.Log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.store, c.gateway = store, gw
	return nil
}

// Stop releases the backend.
func (c *Component) Stop(_ context.Context) error {
	c.store, c.gateway = nil, nil
	return nil
}

// Store returns the backend, or nil before Start.
func (c *Component) Store() Storage { return c.store }

// Gateway returns the gateway, or nil before Start.
func (c *Component) Gateway() *Gateway { return c.gateway }

// Health probes the backend with an existence check.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.store == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not initialized"}
	}
	if _, err := c.store.Exists(ctx, healthProbePath); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// BucketDescriber is optionally implemented by backend configs that use a bucket.
type BucketDescriber interface {
	GetBucket() string
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	details := "provider=" + c.opts.Config.Provider
	if b, ok := c.opts.Backend.(BucketDescriber); ok && b.GetBucket() != "" {
		details += " bucket=" + b.GetBucket()
	}
	return component.Description{Type: "storage", Details: details}
}
