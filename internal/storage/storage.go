package storage

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/config"
	"github.com/agentx/chatwidget/internal/database"
	"github.com/agentx/chatwidget/internal/repository"
	"github.com/agentx/chatwidget/internal/repository/memory"
	"github.com/agentx/chatwidget/internal/repository/sqldb"
)

// Store is the session store selected by the database config
type Store struct {
	repository.SessionRepository
	db *database.DB
}

// Open connects the configured medium, brings its schema up to date and
// returns the session store on top of it. The memory driver needs neither.
func Open(cfg config.DatabaseConfig, defaults repository.Defaults, log *logrus.Entry) (*Store, error) {
	if cfg.Driver == "memory" {
		log.Warn("Using in-memory session store; sessions are lost on exit")
		return &Store{SessionRepository: memory.NewSessionRepository(defaults)}, nil
	}

	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	version, dirty, err := database.SchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if dirty {
		db.Close()
		return nil, fmt.Errorf("database schema version %d is dirty", version)
	}

	log.WithFields(logrus.Fields{
		"driver":         db.Driver(),
		"schema_version": version,
	}).Info("Session store ready")

	return &Store{
		SessionRepository: sqldb.NewSessionRepository(db.DB, defaults, log),
		db:                db,
	}, nil
}

// DB returns the underlying connection, or nil for the memory driver.
func (s *Store) DB() *database.DB {
	return s.db
}

// Close releases the connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
