package providers

import (
	"fmt"
	"sync"

	"github.com/agentx/chatwidget/internal/models"
)

// Registry manages the configured completion endpoints
type Registry struct {
	models map[string]models.Model
	order  []string
	mu     sync.RWMutex
}

// NewRegistry creates a new model registry
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]models.Model),
	}
}

// Register adds a model to the registry, replacing one with the same id
func (r *Registry) Register(model models.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[model.ID]; !exists {
		r.order = append(r.order, model.ID)
	}
	r.models[model.ID] = model
}

// Get retrieves a model by ID
func (r *Registry) Get(id string) (models.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	return m, ok
}

// List returns all registered models in registration order
func (r *Registry) List() []models.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Model, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.models[id])
	}
	return list
}

// Default returns the first registered model
func (r *Registry) Default() (models.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return models.Model{}, false
	}
	return r.models[r.order[0]], true
}

// Has checks if a model is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.models[id]
	return exists
}

// Request builds a completion request against the model with the given id
func (r *Registry) Request(modelID string, messages []Message) (CompletionRequest, error) {
	m, ok := r.Get(modelID)
	if !ok {
		return CompletionRequest{}, fmt.Errorf("%w: %s", models.ErrUnknownModel, modelID)
	}
	return CompletionRequest{
		ServerURL: m.ServerURL,
		APIPath:   m.APIPath,
		Model:     m.ModelName,
		APIKey:    m.APIKey,
		Messages:  messages,
	}, nil
}
