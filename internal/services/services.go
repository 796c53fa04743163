package services

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/config"
	"github.com/agentx/chatwidget/internal/logging"
	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/providers"
	"github.com/agentx/chatwidget/internal/render"
	"github.com/agentx/chatwidget/internal/repository"
)

// Services holds all service instances
type Services struct {
	// Widgets is what handlers drive; everything else is shared by its instances.
	Widgets *WidgetManager
	Hub     *Hub

	Sessions repository.SessionRepository
	Models   *providers.Registry
	Renderer render.Renderer
	Apps     []models.App
}

// NewServices creates all service instances
func NewServices(
	cfg *config.Config,
	store repository.SessionRepository,
	client providers.Client,
	renderer render.Renderer,
	logger *logrus.Logger,
) *Services {
	registry := NewModelRegistry(cfg.Models)
	apps := AppsFromConfig(cfg.Apps)
	hub := NewHub(logging.Component(logger, "hub"))

	logger.WithFields(logrus.Fields{
		"models": len(registry.List()),
		"apps":   len(apps),
	}).Info("Initializing services")

	widgets := NewWidgetManager(Dependencies{
		Store:     store,
		Client:    client,
		Models:    registry,
		Renderer:  renderer,
		Confirmer: AlwaysConfirm,
		Logger:    logging.Component(logger, "widget"),
	}, hub, apps, cfg.DefaultUser, cfg.Server.WidgetIdleTimeout)

	return &Services{
		Widgets:  widgets,
		Hub:      hub,
		Sessions: store,
		Models:   registry,
		Renderer: renderer,
		Apps:     apps,
	}
}

// Close tears down every widget instance.
func (s *Services) Close() {
	s.Widgets.Close()
}

// NewModelRegistry registers the configured models in order; the first one
// is the default.
func NewModelRegistry(cfgs []config.ModelConfig) *providers.Registry {
	registry := providers.NewRegistry()
	for _, m := range cfgs {
		registry.Register(models.Model{
			ID:        m.ID,
			ServerURL: m.ServerURL,
			ModelName: m.ModelName,
			APIPath:   m.APIPath,
			APIKey:    m.APIKey,
		})
	}
	return registry
}

// AppsFromConfig returns the configured apps ordered by index.
func AppsFromConfig(cfgs []config.AppConfig) []models.App {
	apps := make([]models.App, len(cfgs))
	for i, a := range cfgs {
		apps[i] = models.App{
			ID:          a.ID,
			Index:       a.Index,
			Name:        a.Name,
			Description: a.Description,
			Prompt:      a.Prompt,
			Img:         a.Img,
		}
	}
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].Index < apps[j].Index })
	return apps
}
