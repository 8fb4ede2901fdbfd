// Package database owns the embedded SQL schema and applies it with golang-migrate.
package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrations embed.FS

// NewMigrator returns a migrator for driver. For postgres, target is a
// postgres:// connection URL; for sqlite it is the database file path.
// The caller must Close the returned migrator.
func NewMigrator(driver, target string) (*migrate.Migrate, error) {
	var dir, dbURL string
	switch driver {
	case DriverPostgres:
		dir = "migrations/postgres"
		dbURL = pgxURL(target)
	case DriverSQLite:
		dir = "migrations/sqlite"
		dbURL = "sqlite://" + target
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	src, err := iofs.New(migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	return m, nil
}

// Up applies all pending migrations. Nothing pending is not an error.
func Up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Down reverts all applied migrations. Nothing applied is not an error.
func Down(m *migrate.Migrate) error {
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Migrate opens a migrator for driver/target, applies pending migrations and closes it.
func Migrate(driver, target string) error {
	m, err := NewMigrator(driver, target)
	if err != nil {
		return err
	}
	defer m.Close()
	return Up(m)
}

// pgxURL rewrites a postgres:// or postgresql:// URL to the pgx5:// scheme
// registered by the pgx/v5 migrate driver.
func pgxURL(u string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(u, prefix) {
			return "pgx5://" + strings.TrimPrefix(u, prefix)
		}
	}
	return u
}
