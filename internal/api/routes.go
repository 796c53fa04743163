package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/api/handlers"
	"github.com/agentx/chatwidget/internal/api/middleware"
	"github.com/agentx/chatwidget/internal/services"
)

// RouteOptions tunes the routes
type RouteOptions struct {
	// RateLimit is the number of widget requests allowed per minute.
	RateLimit int
	Logger    *logrus.Entry
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc *services.Services, opts RouteOptions) {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	api := app.Group("/api/v1")

	// Catalog
	api.Get("/health", handlers.Health(svc))
	api.Get("/models", handlers.GetModels(svc))
	api.Get("/apps", handlers.GetApps(svc))

	// Widget instances
	widgets := api.Group("/widgets", middleware.WidgetRateLimit(opts.RateLimit))
	widgets.Post("/", handlers.CreateWidget(svc))
	widgets.Get("/:id", handlers.GetWidget(svc))
	widgets.Delete("/:id", handlers.DeleteWidget(svc))

	// Sessions
	widgets.Post("/:id/sessions", handlers.CreateSession(svc))
	widgets.Post("/:id/sessions/:sid/select", handlers.SelectSession(svc))
	widgets.Put("/:id/sessions/:sid", handlers.RenameSession(svc))
	widgets.Delete("/:id/sessions/:sid", handlers.DeleteSession(svc))

	// Messages
	widgets.Post("/:id/messages", handlers.SendMessage(svc))
	widgets.Put("/:id/messages/:mid", handlers.EditMessage(svc))
	widgets.Delete("/:id/messages/:mid", handlers.DeleteMessage(svc))
	widgets.Post("/:id/messages/:mid/regenerate", handlers.RegenerateMessage(svc))
	widgets.Get("/:id/messages/:mid/content", handlers.GetMessageContent(svc))

	// Generation, app and model
	widgets.Post("/:id/cancel", handlers.CancelGeneration(svc))
	widgets.Put("/:id/app", handlers.SwitchApp(svc))
	widgets.Put("/:id/model", handlers.SwitchModel(svc))

	// Event stream
	app.Get("/ws/widgets/:id", handlers.EventsUpgrade(svc), websocket.New(handlers.WidgetEvents(svc, log)))
}
