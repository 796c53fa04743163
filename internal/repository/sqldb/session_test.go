package sqldb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/config"
	"github.com/agentx/chatwidget/internal/database"
	"github.com/agentx/chatwidget/internal/logging"
	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/repository"
	"github.com/agentx/chatwidget/internal/repository/repotest"
)

func openDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewConnection(config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newRepo(t *testing.T, defaults repository.Defaults) *SessionRepository {
	db := openDB(t)
	return NewSessionRepository(db.DB, defaults, logging.Discard().WithField("component", "store"))
}

func TestSessionRepositoryContract(t *testing.T) {
	repotest.RunContract(t, func(t *testing.T, defaults repository.Defaults) repository.SessionRepository {
		return newRepo(t, defaults)
	})
}

func TestLegacyMessagesGetIDs(t *testing.T) {
	repo := newRepo(t, repotest.Defaults())
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := repo.db.Exec(
		`INSERT INTO sessions (id, user_id, title, model, messages, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"legacy", "default_user", "Old", "m1",
		`[{"role":"user","content":"hi","time":"2024-01-01T00:00:00Z"},{"role":"assistant","content":"hello","time":"2024-01-01T00:00:01Z"}]`,
		now, now)
	require.NoError(t, err)

	got, err := repo.Get(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.NotEmpty(t, got.Messages[0].ID)
	assert.NotEqual(t, got.Messages[0].ID, got.Messages[1].ID)
	assert.Equal(t, "", got.AppID)
}

func TestPutFailsWhenClosed(t *testing.T) {
	db := openDB(t)
	repo := NewSessionRepository(db.DB, repotest.Defaults(), logging.Discard().WithField("component", "store"))
	require.NoError(t, db.Close())

	_, err := repo.Put(context.Background(), &models.Session{ID: "s1"})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindStorage))

	_, err = repo.ListByUser(context.Background(), "default_user")
	assert.True(t, models.IsKind(err, models.KindStorage))
}
