package database

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/agentx/chatwidget/internal/config"
)

// DB wraps the database connection
type DB struct {
	*sqlx.DB
	driver string
}

// NewConnection creates a new database connection for the configured driver
func NewConnection(cfg config.DatabaseConfig) (*DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite3", "":
		db, err = sqlx.Connect("sqlite3", GetSQLiteDSN(cfg.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		// SQLite allows a single writer; an in-memory database only exists
		// on the connection that created it.
		db.SetMaxOpenConns(1)
	case "postgres", "pgx":
		db, err = sqlx.Connect(cfg.Driver, GetConnString(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: db.DriverName()}, nil
}

// Driver returns the name of the underlying sql driver.
func (db *DB) Driver() string {
	return db.driver
}

// IsSQLite reports whether the connection uses SQLite.
func (db *DB) IsSQLite() bool {
	return db.driver == "sqlite3"
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// GetSQLiteDSN returns the sqlite3 data source for a file path or ":memory:".
func GetSQLiteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
}

// GetConnString returns the key/value connection string used by lib/pq and pgx
func GetConnString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)
}
