package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/config"
	"github.com/agentx/chatwidget/internal/logging"
	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/providers"
	"github.com/agentx/chatwidget/internal/repository"
	"github.com/agentx/chatwidget/internal/repository/memory"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newManager(t *testing.T, clk *manualClock) (*WidgetManager, *Hub) {
	t.Helper()
	registry := providers.NewRegistry()
	registry.Register(models.Model{ID: "m1", ModelName: "Model One"})

	log := logging.Discard().WithField("component", "widgets")
	hub := NewHub(log)
	m := NewWidgetManager(Dependencies{
		Store:  memory.NewSessionRepository(repository.Defaults{}),
		Client: newFakeClient(),
		Models: registry,
		Logger: log,
		Now:    clk.Now,
	}, hub, testApps, "default_user", 0)
	t.Cleanup(m.Close)
	return m, hub
}

func TestWidgetManagerLifecycle(t *testing.T) {
	clk := &manualClock{now: time.Now()}
	m, hub := newManager(t, clk)

	ctrl, err := m.Create(context.Background(), WidgetOptions{AppID: "poet"})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())

	snap := ctrl.Snapshot()
	assert.Equal(t, "default_user", snap.UserID)
	assert.Equal(t, "poet", snap.AppID)

	got, err := m.Get(ctrl.ID())
	require.NoError(t, err)
	assert.Same(t, ctrl, got)

	events, cancel := hub.Subscribe(ctrl.ID())
	defer cancel()

	require.NoError(t, m.Teardown(ctrl.ID()))
	_, ok := <-events
	assert.False(t, ok)

	_, err = m.Get(ctrl.ID())
	assert.ErrorIs(t, err, models.ErrInstanceNotFound)
	assert.ErrorIs(t, m.Teardown(ctrl.ID()), models.ErrInstanceNotFound)
}

func TestWidgetManagerRejectsUnknownApp(t *testing.T) {
	m, _ := newManager(t, &manualClock{now: time.Now()})

	_, err := m.Create(context.Background(), WidgetOptions{AppID: "nope"})
	assert.ErrorIs(t, err, models.ErrUnknownApp)
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.Equal(t, 0, m.Count())
}

func TestWidgetManagerReapsIdleInstances(t *testing.T) {
	clk := &manualClock{now: time.Now()}
	m, _ := newManager(t, clk)
	m.idleTimeout = time.Minute

	idle, err := m.Create(context.Background(), WidgetOptions{})
	require.NoError(t, err)

	clk.Advance(45 * time.Second)
	busy, err := m.Create(context.Background(), WidgetOptions{})
	require.NoError(t, err)
	require.NoError(t, busy.SendUserMessage(context.Background(), "hi", nil))

	clk.Advance(45 * time.Second)
	fresh, err := m.Create(context.Background(), WidgetOptions{})
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	m.reapOnce()

	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, models.ErrInstanceNotFound)
	_, err = m.Get(busy.ID())
	assert.NoError(t, err)
	_, err = m.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestAppsFromConfigOrdersByIndex(t *testing.T) {
	apps := AppsFromConfig([]config.AppConfig{
		{ID: "b", Index: 2},
		{ID: "a", Index: 1},
	})
	require.Len(t, apps, 2)
	assert.Equal(t, "a", apps[0].ID)
}

func TestNewModelRegistryKeepsOrder(t *testing.T) {
	registry := NewModelRegistry([]config.ModelConfig{
		{ID: "first", ModelName: "One"},
		{ID: "second", ModelName: "Two"},
	})
	m, ok := registry.Default()
	require.True(t, ok)
	assert.Equal(t, "first", m.ID)
	assert.Len(t, registry.List(), 2)
}
