package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/models"
)

// WidgetOptions configures a new widget instance
type WidgetOptions struct {
	UserID  string `json:"userId"`
	AppID   string `json:"appId"`
	ModelID string `json:"modelId"`
}

type widget struct {
	ctrl     *Controller
	lastUsed time.Time
}

// WidgetManager owns the live widget instances of the process. Instances
// that stay unused longer than the idle timeout are torn down.
type WidgetManager struct {
	mu      sync.RWMutex
	widgets map[string]*widget

	deps        Dependencies
	hub         *Hub
	apps        []models.App
	defaultUser string
	idleTimeout time.Duration
	log         *logrus.Entry

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWidgetManager creates a manager. deps is the template every controller
// is built from; its Events are replaced by hub.
func NewWidgetManager(deps Dependencies, hub *Hub, apps []models.App, defaultUser string, idleTimeout time.Duration) *WidgetManager {
	m := &WidgetManager{
		widgets:     make(map[string]*widget),
		deps:        deps,
		hub:         hub,
		apps:        apps,
		defaultUser: defaultUser,
		idleTimeout: idleTimeout,
		log:         deps.Logger,
		stopChan:    make(chan struct{}),
	}
	if m.log == nil {
		m.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if m.deps.Now == nil {
		m.deps.Now = time.Now
	}

	if idleTimeout > 0 {
		go m.reapIdle()
	}
	return m
}

// Create starts a widget instance and loads its history.
func (m *WidgetManager) Create(ctx context.Context, opts WidgetOptions) (*Controller, error) {
	if opts.UserID == "" {
		opts.UserID = m.defaultUser
	}

	deps := m.deps
	deps.Events = m.hub
	deps.Logger = m.log.WithField("user_id", opts.UserID)

	ctrl, err := NewController(ControllerConfig{
		InstanceID: uuid.New().String(),
		UserID:     opts.UserID,
		AppID:      opts.AppID,
		ModelID:    opts.ModelID,
		Apps:       m.apps,
	}, deps)
	if err != nil {
		return nil, models.ValidationError("create widget", err)
	}
	if err := ctrl.Init(ctx); err != nil {
		ctrl.Teardown()
		return nil, err
	}

	m.mu.Lock()
	m.widgets[ctrl.ID()] = &widget{ctrl: ctrl, lastUsed: m.deps.Now()}
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"instance_id": ctrl.ID(),
		"user_id":     opts.UserID,
		"app_id":      opts.AppID,
	}).Info("Widget created")
	return ctrl, nil
}

// Get returns the instance with the given id and marks it used.
func (m *WidgetManager) Get(id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.widgets[id]
	if !ok {
		return nil, models.ErrInstanceNotFound
	}
	w.lastUsed = m.deps.Now()
	return w.ctrl, nil
}

// Teardown stops an instance and disconnects its subscribers.
func (m *WidgetManager) Teardown(id string) error {
	m.mu.Lock()
	w, ok := m.widgets[id]
	delete(m.widgets, id)
	m.mu.Unlock()

	if !ok {
		return models.ErrInstanceNotFound
	}
	w.ctrl.Teardown()
	m.hub.CloseInstance(id)
	m.log.WithField("instance_id", id).Info("Widget torn down")
	return nil
}

// Count returns the number of live instances.
func (m *WidgetManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.widgets)
}

// Close stops the idle reaper and tears down every instance.
func (m *WidgetManager) Close() {
	m.stopOnce.Do(func() { close(m.stopChan) })

	m.mu.Lock()
	ids := make([]string, 0, len(m.widgets))
	for id := range m.widgets {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Teardown(id)
	}
}

func (m *WidgetManager) reapIdle() {
	interval := m.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.reapOnce()
		case <-m.stopChan:
			return
		}
	}
}

// reapOnce tears down instances idle past the timeout. Instances that are
// still generating a reply are kept.
func (m *WidgetManager) reapOnce() {
	now := m.deps.Now()

	m.mu.RLock()
	var idle []string
	for id, w := range m.widgets {
		if now.Sub(w.lastUsed) > m.idleTimeout && !w.ctrl.Loading() {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.log.WithField("instance_id", id).Debug("Reaping idle widget")
		_ = m.Teardown(id)
	}
}
