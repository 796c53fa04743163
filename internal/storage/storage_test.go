package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/config"
	"github.com/agentx/chatwidget/internal/database"
	"github.com/agentx/chatwidget/internal/logging"
	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/repository"
)

func TestOpen(t *testing.T) {
	log := logging.Discard().WithField("component", "storage")

	tests := []struct {
		name   string
		cfg    config.DatabaseConfig
		wantDB bool
	}{
		{name: "memory", cfg: config.DatabaseConfig{Driver: "memory"}},
		{name: "sqlite", cfg: config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"}, wantDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg, repository.Defaults{UserID: "u1", Model: "m1"}, log)
			require.NoError(t, err)
			defer store.Close()
			assert.Equal(t, tt.wantDB, store.DB() != nil)

			ctx := context.Background()
			_, err = store.Put(ctx, &models.Session{ID: "s1", AppID: "a1", Title: "t"})
			require.NoError(t, err)

			sessions, err := store.ListByUser(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, sessions, 1)
			assert.Equal(t, "a1", sessions[0].AppID)
		})
	}
}

func TestOpenMigratesToLatest(t *testing.T) {
	store, err := Open(config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"}, repository.Defaults{},
		logging.Discard().WithField("component", "storage"))
	require.NoError(t, err)
	defer store.Close()

	version, dirty, err := database.SchemaVersion(store.DB())
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, repository.Defaults{},
		logging.Discard().WithField("component", "storage"))
	assert.Error(t, err)
}
