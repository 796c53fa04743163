package handlers

import (
	"github.com/gofiber/fiber/v2"

	apimodels "github.com/agentx/chatwidget/internal/api/models"
	"github.com/agentx/chatwidget/internal/services"
)

// widgetHandler is a handler that needs the widget named by the :id param
type widgetHandler func(c *fiber.Ctx, ctrl *services.Controller) error

func withWidget(svc *services.Services, h widgetHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctrl, err := svc.Widgets.Get(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return h(c, ctrl)
	}
}

// snapshot answers with the widget state after an operation
func snapshot(c *fiber.Ctx, ctrl *services.Controller) error {
	return c.JSON(ctrl.Snapshot())
}

// CreateWidget starts a widget instance and returns its first snapshot
func CreateWidget(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req apimodels.CreateWidgetRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
		}

		ctrl, err := svc.Widgets.Create(c.UserContext(), services.WidgetOptions{
			UserID:  req.UserID,
			AppID:   req.AppID,
			ModelID: req.ModelID,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ctrl.Snapshot())
	}
}

// GetWidget returns the current snapshot of a widget
func GetWidget(svc *services.Services) fiber.Handler {
	return withWidget(svc, snapshot)
}

// DeleteWidget tears a widget down
func DeleteWidget(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Widgets.Teardown(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
