package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations runs all pending database migrations
func RunMigrations(db *DB) error {
	m, done, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer done()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// RollbackMigration rolls back the last migration
func RollbackMigration(db *DB) error {
	m, done, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer done()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// MigrateTo moves the schema to the given version.
func MigrateTo(db *DB, version uint) error {
	m, done, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer done()

	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate to version %d: %w", version, err)
	}
	return nil
}

// SchemaVersion returns the current schema version, 0 when no migration ran.
func SchemaVersion(db *DB) (uint, bool, error) {
	m, done, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	defer done()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// newMigrator binds the embedded migrations to the open connection. The
// returned cleanup never closes db itself.
func newMigrator(db *DB) (*migrate.Migrate, func(), error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	var (
		driver migratedb.Driver
		name   string
	)
	if db.IsSQLite() {
		name = "sqlite3"
		driver, err = sqlite3.WithInstance(db.DB.DB, &sqlite3.Config{})
	} else {
		name = "postgres"
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	}
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	done := func() {
		source.Close()
		// The sqlite3 driver closes the *sql.DB it wraps; postgres only
		// releases the dedicated connection it took from the pool.
		if !db.IsSQLite() {
			driver.Close()
		}
	}
	return m, done, nil
}
