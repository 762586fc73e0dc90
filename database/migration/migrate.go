// Package migration applies versioned SQL migrations with golang-migrate.
//
// Migration files follow golang-migrate naming, VERSION_name.up.sql and
// VERSION_name.down.sql, and are read from any fs.FS, usually an embed.FS
// owned by the package that defines the tables.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// DriverFunc creates a migrate database driver over an open pool.
type DriverFunc func(*sql.DB) (migratedb.Driver, error)

// SQLite is the driver for the go-sqlite3 pools opened by package database.
func SQLite(db *sql.DB) (migratedb.Driver, error) {
	return sqlite3.WithInstance(db, &sqlite3.Config{})
}

// Source locates migration files.
type Source struct {
	FS  fs.FS
	Dir string
}

// Up applies all pending migrations. No pending migrations is not an error.
func Up(gdb *gorm.DB, src Source, driver DriverFunc) error {
	m, err := newMigrator(gdb, src, driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back every applied migration.
func Down(gdb *gorm.DB, src Source, driver DriverFunc) error {
	m, err := newMigrator(gdb, src, driver)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version returns the applied version. ok is false before the first migration.
func Version(gdb *gorm.DB, src Source, driver DriverFunc) (version uint, dirty, ok bool, err error) {
	m, err := newMigrator(gdb, src, driver)
	if err != nil {
		return 0, false, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("migrate version: %w", err)
	}
	return version, dirty, true, nil
}

// newMigrator binds golang-migrate to the gorm pool. The migrator is never
// closed: closing it would close the shared *sql.DB.
func newMigrator(gdb *gorm.DB, src Source, driver DriverFunc) (*migrate.Migrate, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	d, err := driver(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	s, err := iofs.New(src.FS, src.Dir)
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", s, "sqlite3", d)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
