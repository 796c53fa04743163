package handlers

import (
	"github.com/gofiber/fiber/v2"

	apimodels "github.com/agentx/chatwidget/internal/api/models"
	"github.com/agentx/chatwidget/internal/services"
)

// CreateSession starts a new session in the widget
func CreateSession(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		var req apimodels.CreateSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
		}

		if _, err := ctrl.CreateNewSession(req.AppID); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ctrl.Snapshot())
	})
}

// SelectSession makes a session current
func SelectSession(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		if err := ctrl.SelectSession(c.Params("sid")); err != nil {
			return respondError(c, err)
		}
		return snapshot(c, ctrl)
	})
}

// RenameSession updates a session title
func RenameSession(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		var req apimodels.RenameSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		if err := ctrl.RenameSession(c.UserContext(), c.Params("sid"), req.Title); err != nil {
			return respondError(c, err)
		}
		return snapshot(c, ctrl)
	})
}

// DeleteSession deletes a session. The widget host confirms before calling.
func DeleteSession(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		if err := ctrl.DeleteSession(c.UserContext(), c.Params("sid")); err != nil {
			return respondError(c, err)
		}
		return snapshot(c, ctrl)
	})
}
