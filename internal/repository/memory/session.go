package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/repository"
)

// SessionRepository keeps sessions in process memory. It backs the
// "memory" database driver and tests.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	defaults repository.Defaults
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates an empty in-memory session repository
func NewSessionRepository(defaults repository.Defaults) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*models.Session),
		defaults: defaults,
	}
}

func (r *SessionRepository) Put(ctx context.Context, session *models.Session) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.StorageError("put session", err)
	}
	stored := r.defaults.Apply(session)

	r.mu.Lock()
	r.sessions[stored.ID] = stored.Clone()
	r.mu.Unlock()

	return stored, nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	return r.filter(func(s *models.Session) bool { return s.UserID == userID }), nil
}

func (r *SessionRepository) ListByApp(ctx context.Context, appID string) ([]*models.Session, error) {
	return r.filter(func(s *models.Session) bool { return s.AppID == appID }), nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

func (r *SessionRepository) filter(keep func(*models.Session) bool) []*models.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Session, 0)
	for _, s := range r.sessions {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	// map order is random; fall back to id for a deterministic tie order
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	repository.SortByUpdated(out)
	return out
}
