package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds database connection configuration. Only SQLite is wired.
type Config struct {
	// DSN is the SQLite data source, e.g. "file:scribe.db". File databases get
	// WAL journaling, immediate write transactions and a busy timeout unless the
	// DSN sets those parameters itself.
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// Migrate applies pending versioned migrations on start.
	Migrate bool `yaml:"migrate" mapstructure:"migrate"`

	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	// LogLevel is one of silent, error, warn, info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ApplyDefaults sets defaults for zero-valued fields. In-memory databases are
// pinned to one connection that never expires, since every new connection
// would see an empty database.
func (c *Config) ApplyDefaults() {
	if c.DSN == "" {
		c.DSN = "file:scribe.db"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.InMemory() {
		c.MaxOpenConns, c.MaxIdleConns, c.ConnMaxLifetime = 1, 1, 0
		return
	}
	c.DSN = withFileDefaults(c.DSN)
}

// fileParams are added to file DSNs that do not set them. BEGIN IMMEDIATE takes
// the write lock up front, so a second writer waits out the busy timeout rather
// than failing a read-to-write lock upgrade with "database is locked".
var fileParams = [][2]string{
	{"_journal_mode", "WAL"},
	{"_txlock", "immediate"},
	{"_busy_timeout", "5000"},
}

func withFileDefaults(dsn string) string {
	base, rawQuery, _ := strings.Cut(dsn, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dsn
	}
	var add []string
	for _, p := range fileParams {
		if _, ok := q[p[0]]; !ok {
			add = append(add, p[0]+"="+p[1])
		}
	}
	if len(add) == 0 {
		return dsn
	}
	if rawQuery != "" {
		add = append([]string{rawQuery}, add...)
	}
	return base + "?" + strings.Join(add, "&")
}

// InMemory reports whether the DSN names an in-memory database.
func (c *Config) InMemory() bool {
	return strings.Contains(c.DSN, ":memory:") || strings.Contains(c.DSN, "mode=memory")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	switch strings.ToLower(c.LogLevel) {
	case "silent", "error", "warn", "info":
	default:
		return fmt.Errorf("invalid database log_level %q", c.LogLevel)
	}
	return nil
}
