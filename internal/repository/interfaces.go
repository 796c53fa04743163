package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agentx/chatwidget/internal/models"
)

// Session is the stored form of a session; messages are kept as a JSON document
type Session struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	AppID     sql.NullString `db:"app_id"`
	Title     string         `db:"title"`
	Model     string         `db:"model"`
	Messages  string         `db:"messages"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// SessionRepository defines session storage operations
type SessionRepository interface {
	// Put inserts or fully replaces the session with the same id and
	// returns the stored copy with defaults applied.
	Put(ctx context.Context, session *models.Session) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	// ListByUser returns the user's sessions, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]*models.Session, error)
	ListByApp(ctx context.Context, appID string) ([]*models.Session, error)
	// Delete removes the session; deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// Defaults fills the fields a caller may leave empty before a session is stored.
type Defaults struct {
	UserID string
	Model  string
	Now    func() time.Time
}

// Apply returns a copy of s with missing fields defaulted.
func (d Defaults) Apply(s *models.Session) *models.Session {
	c := s.Clone()
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.UserID == "" {
		c.UserID = d.UserID
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Messages == nil {
		c.Messages = []models.Message{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	c.CreatedAt = normalizeTime(c.CreatedAt)
	c.UpdatedAt = normalizeTime(c.UpdatedAt)
	return c
}

// ToRow converts a session to its stored form.
func ToRow(s *models.Session) (*Session, error) {
	messages, err := json.Marshal(s.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode messages: %w", err)
	}
	return &Session{
		ID:        s.ID,
		UserID:    s.UserID,
		AppID:     sql.NullString{String: s.AppID, Valid: s.AppID != ""},
		Title:     s.Title,
		Model:     s.Model,
		Messages:  string(messages),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

// FromRow converts a stored row back to a session. Messages stored before
// message ids existed are given one.
func FromRow(row *Session) (*models.Session, error) {
	s := &models.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		AppID:     row.AppID.String,
		Title:     row.Title,
		Model:     row.Model,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.Messages != "" {
		if err := json.Unmarshal([]byte(row.Messages), &s.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages of session %s: %w", row.ID, err)
		}
	}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}
	s.EnsureMessageIDs()
	return s, nil
}

// SortByUpdated orders sessions by updatedAt descending, keeping the
// relative order of ties.
func SortByUpdated(sessions []*models.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}

// normalizeTime drops the monotonic reading and the precision neither
// SQLite nor PostgreSQL timestamps keep.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
