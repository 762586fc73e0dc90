package database

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/database/migration"
	"github.com/kbukum/scribe/logger"
)

// Component manages a DB for the component registry.
type Component struct {
	db     *DB
	cfg    Config
	log    *logger.Logger
	schema *migration.Source
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a database component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithMigrations sets the migrations applied on Start when migrate is set.
// golang-migrate tracks one version per database, so there is one source.
func (c *Component) WithMigrations(src migration.Source) *Component {
	c.schema = &src
	return c
}

// DB returns the database, or nil before Start.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

// Start connects and optionally migrates.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	if c.cfg.Migrate && c.schema != nil {
		if err := db.Migrate(*c.schema); err != nil {
			_ = db.Close()
			return fmt.Errorf("database start: %w", err)
		}
	}
	c.db = db
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not initialized"}
	}
	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("sqlite pool=%d/%d", c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.Migrate && c.schema != nil {
		details += " migrate=on"
	}
	return component.Description{Type: "database", Details: details}
}
