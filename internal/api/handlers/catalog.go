package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	apimodels "github.com/agentx/chatwidget/internal/api/models"
	"github.com/agentx/chatwidget/internal/services"
)

// Health reports that the server is up
func Health(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(apimodels.HealthResponse{
			Status:  "healthy",
			Service: "chatwidget",
			Widgets: svc.Widgets.Count(),
			Time:    time.Now().UTC(),
		})
	}
}

// GetModels lists the configured models; the first one is the default
func GetModels(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		def, _ := svc.Models.Default()

		models := []apimodels.ModelInfo{}
		for _, m := range svc.Models.List() {
			models = append(models, apimodels.ModelInfo{
				ID:        m.ID,
				ModelName: m.ModelName,
				ServerURL: m.ServerURL,
				Default:   m.ID == def.ID,
			})
		}
		return c.JSON(fiber.Map{"models": models})
	}
}

// GetApps lists the configured apps
func GetApps(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"apps": svc.Apps})
	}
}
