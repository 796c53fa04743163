// Package repotest holds the behaviour every SessionRepository must share.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/repository"
)

// Factory builds an empty repository using the given defaults.
type Factory func(t *testing.T, defaults repository.Defaults) repository.SessionRepository

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Defaults used by the contract.
func Defaults() repository.Defaults {
	return repository.Defaults{
		UserID: "default_user",
		Model:  "m-default",
		Now:    func() time.Time { return base },
	}
}

// RunContract exercises a repository implementation.
func RunContract(t *testing.T, newRepo Factory) {
	t.Run("put then list by user", func(t *testing.T) {
		repo := newRepo(t, Defaults())
		ctx := context.Background()

		s := &models.Session{
			ID:     "s1",
			UserID: "alice",
			AppID:  "app-1",
			Title:  "Greetings",
			Model:  "m1",
			Messages: []models.Message{
				{ID: "sys", Role: models.RoleSystem, Content: "be nice", Time: base},
				{ID: "u1", Role: models.RoleUser, Content: "hello", Time: base},
				{ID: "a1", Role: models.RoleAssistant, Content: "hi", HTMLContent: "<p>hi</p>", Time: base},
			},
			CreatedAt: base,
			UpdatedAt: base.Add(time.Minute),
		}
		_, err := repo.Put(ctx, s)
		require.NoError(t, err)

		list, err := repo.ListByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)

		got := list[0]
		assert.Equal(t, "s1", got.ID)
		assert.Equal(t, "app-1", got.AppID)
		assert.Equal(t, "Greetings", got.Title)
		assert.Equal(t, "m1", got.Model)
		assert.True(t, base.Add(time.Minute).Equal(got.UpdatedAt))
		require.Len(t, got.Messages, 3)
		assert.Equal(t, "<p>hi</p>", got.Messages[2].HTMLContent)
		assert.Equal(t, "u1", got.Messages[1].ID)

		others, err := repo.ListByUser(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, others)
	})

	t.Run("put replaces the whole session", func(t *testing.T) {
		repo := newRepo(t, Defaults())
		ctx := context.Background()

		_, err := repo.Put(ctx, &models.Session{ID: "s1", UserID: "alice", Title: "one",
			Messages: []models.Message{{ID: "u1", Role: models.RoleUser, Content: "a"}}})
		require.NoError(t, err)
		_, err = repo.Put(ctx, &models.Session{ID: "s1", UserID: "alice", Title: "two"})
		require.NoError(t, err)

		got, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "two", got.Title)
		assert.Empty(t, got.Messages)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		repo := newRepo(t, Defaults())
		ctx := context.Background()

		stored, err := repo.Put(ctx, &models.Session{Title: "bare"})
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)

		got, err := repo.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, "default_user", got.UserID)
		assert.Equal(t, "m-default", got.Model)
		assert.Equal(t, "", got.AppID)
		assert.NotNil(t, got.Messages)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.True(t, base.Equal(got.UpdatedAt))
	})

	t.Run("list is ordered by updated at descending", func(t *testing.T) {
		repo := newRepo(t, Defaults())
		ctx := context.Background()

		for i, id := range []string{"old", "new", "mid"} {
			offsets := []time.Duration{time.Minute, 3 * time.Minute, 2 * time.Minute}
			_, err := repo.Put(ctx, &models.Session{
				ID: id, UserID: "alice", CreatedAt: base, UpdatedAt: base.Add(offsets[i]),
			})
			require.NoError(t, err)
		}

		list, err := repo.ListByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"new", "mid", "old"}, []string{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("list by app", func(t *testing.T) {
		repo := newRepo(t, Defaults())
		ctx := context.Background()

		_, err := repo.Put(ctx, &models.Session{ID: "a", UserID: "alice", AppID: "x"})
		require.NoError(t, err)
		_, err = repo.Put(ctx, &models.Session{ID: "b", UserID: "alice", AppID: "y"})
		require.NoError(t, err)
		_, err = repo.Put(ctx, &models.Session{ID: "c", UserID: "alice"})
		require.NoError(t, err)

		list, err := repo.ListByApp(ctx, "x")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a", list[0].ID)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t, Defaults())
		ctx := context.Background()

		_, err := repo.Put(ctx, &models.Session{ID: "s1", UserID: "alice"})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "s1"))
		require.NoError(t, repo.Delete(ctx, "s1"))
		require.NoError(t, repo.Delete(ctx, "never-existed"))

		_, err = repo.Get(ctx, "s1")
		assert.True(t, errors.Is(err, models.ErrSessionNotFound))

		list, err := repo.ListByUser(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
