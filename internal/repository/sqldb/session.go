package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/repository"
)

const sessionColumns = `id, user_id, app_id, title, model, messages, created_at, updated_at`

// SessionRepository implements repository.SessionRepository on SQLite or PostgreSQL
type SessionRepository struct {
	db       *sqlx.DB
	defaults repository.Defaults
	log      *logrus.Entry
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SQL session repository
func NewSessionRepository(db *sqlx.DB, defaults repository.Defaults, log *logrus.Entry) *SessionRepository {
	return &SessionRepository{db: db, defaults: defaults, log: log}
}

// Put upserts the whole session in its own transaction
func (r *SessionRepository) Put(ctx context.Context, session *models.Session) (*models.Session, error) {
	stored := r.defaults.Apply(session)
	row, err := repository.ToRow(stored)
	if err != nil {
		return nil, models.StorageError("put session", err)
	}

	query := `
		INSERT INTO sessions (id, user_id, app_id, title, model, messages, created_at, updated_at)
		VALUES (:id, :user_id, :app_id, :title, :model, :messages, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			app_id = excluded.app_id,
			title = excluded.title,
			model = excluded.model,
			messages = excluded.messages,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`

	err = r.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, query, row)
		return err
	})
	if err != nil {
		r.log.WithError(err).WithField("session_id", stored.ID).Error("Failed to save session")
		return nil, models.StorageError("put session", err)
	}

	r.log.WithFields(logrus.Fields{
		"session_id": stored.ID,
		"messages":   len(stored.Messages),
	}).Debug("Session saved")
	return stored, nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	var row repository.Session
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, models.StorageError("get session", err)
	}

	s, err := repository.FromRow(&row)
	if err != nil {
		return nil, models.StorageError("get session", err)
	}
	return s, nil
}

// ListByUser retrieves the sessions of a user, newest first
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := r.db.Rebind(`
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`)
	return r.list(ctx, "list sessions by user", query, userID)
}

// ListByApp retrieves the sessions of an app, newest first
func (r *SessionRepository) ListByApp(ctx context.Context, appID string) ([]*models.Session, error) {
	query := r.db.Rebind(`
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE app_id = ?
		ORDER BY updated_at DESC
	`)
	return r.list(ctx, "list sessions by app", query, appID)
}

// Delete deletes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM sessions WHERE id = ?`)

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, id)
		return err
	})
	if err != nil {
		r.log.WithError(err).WithField("session_id", id).Error("Failed to delete session")
		return models.StorageError("delete session", err)
	}
	return nil
}

func (r *SessionRepository) list(ctx context.Context, op, query string, arg interface{}) ([]*models.Session, error) {
	var rows []repository.Session
	if err := r.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, models.StorageError(op, err)
	}

	sessions := make([]*models.Session, 0, len(rows))
	for i := range rows {
		s, err := repository.FromRow(&rows[i])
		if err != nil {
			return nil, models.StorageError(op, err)
		}
		sessions = append(sessions, s)
	}
	repository.SortByUpdated(sessions)
	return sessions, nil
}

func (r *SessionRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
