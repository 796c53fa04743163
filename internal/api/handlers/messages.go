package handlers

import (
	"github.com/gofiber/fiber/v2"

	apimodels "github.com/agentx/chatwidget/internal/api/models"
	"github.com/agentx/chatwidget/internal/attachments"
	"github.com/agentx/chatwidget/internal/services"
)

// SendMessage appends a prompt and starts the reply. The reply itself is
// delivered over the widget's event socket.
func SendMessage(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		var req apimodels.SendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		for _, a := range req.Attachments {
			if err := attachments.CheckDataURL(a); err != nil {
				return respondError(c, err)
			}
		}

		if err := ctrl.SendUserMessage(c.UserContext(), req.Text, req.Attachments); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(ctrl.Snapshot())
	})
}

// EditMessage replaces the content of a message
func EditMessage(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		var req apimodels.EditMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		if err := ctrl.EditMessage(c.UserContext(), c.Params("mid"), req.Text); err != nil {
			return respondError(c, err)
		}
		return snapshot(c, ctrl)
	})
}

// DeleteMessage removes a message and, after a prompt, its reply turn
func DeleteMessage(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		if err := ctrl.DeleteMessage(c.UserContext(), c.Params("mid")); err != nil {
			return respondError(c, err)
		}
		return snapshot(c, ctrl)
	})
}

// RegenerateMessage replaces an assistant reply with a fresh one
func RegenerateMessage(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		if err := ctrl.Regenerate(c.UserContext(), c.Params("mid")); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(ctrl.Snapshot())
	})
}

// GetMessageContent returns the raw content of a message for copying
func GetMessageContent(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		id := c.Params("mid")
		content, err := ctrl.CopyMessage(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(apimodels.ContentResponse{ID: id, Content: content})
	})
}

// CancelGeneration stops the reply being generated
func CancelGeneration(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		if err := ctrl.CancelGeneration(); err != nil {
			return respondError(c, err)
		}
		return snapshot(c, ctrl)
	})
}

// SwitchApp changes the active app
func SwitchApp(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		var req apimodels.SwitchAppRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		if err := ctrl.SwitchApp(req.AppID); err != nil {
			return respondError(c, err)
		}
		return snapshot(c, ctrl)
	})
}

// SwitchModel changes the active model
func SwitchModel(svc *services.Services) fiber.Handler {
	return withWidget(svc, func(c *fiber.Ctx, ctrl *services.Controller) error {
		var req apimodels.SwitchModelRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		if err := ctrl.SwitchModel(c.UserContext(), req.ModelID); err != nil {
			return respondError(c, err)
		}
		return snapshot(c, ctrl)
	})
}
