package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apimodels "github.com/agentx/chatwidget/internal/api/models"
	"github.com/agentx/chatwidget/internal/models"
)

// StatusFor maps an engine error to its HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrInstanceNotFound),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrMessageNotFound),
		errors.Is(err, models.ErrClosed):
		return fiber.StatusNotFound
	}

	switch models.KindOf(err) {
	case models.KindValidation:
		return fiber.StatusBadRequest
	case models.KindTransport:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(apimodels.ErrorResponse{
		Error: err.Error(),
		Kind:  models.KindOf(err),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(apimodels.ErrorResponse{
		Error: message,
		Kind:  models.KindValidation,
	})
}
