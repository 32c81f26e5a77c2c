package handlers

import (
	"errors"
	"log/slog"

	"taskmanager/internal/logger"
	"taskmanager/internal/services"

	"github.com/gofiber/fiber/v2"
)

// invalidBody is returned when a request body is not the JSON it should be.
func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
	})
}

// emptyStatus answers with status and no body at all.
func emptyStatus(c *fiber.Ctx, status int) error {
	return c.Status(status).Send(nil)
}

// writeError maps service errors to responses. Validation problems become
// 400 with details, not-found is an empty 404 and anything unexpected is
// logged and answered with an empty 500.
func writeError(c *fiber.Ctx, log *slog.Logger, op string, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		body := fiber.Map{"error": verr.Message}
		if len(verr.Fields) > 0 {
			body["errors"] = verr.Fields
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.Is(err, services.ErrInvalidUpdate),
		errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return emptyStatus(c, fiber.StatusNotFound)
	}

	log.Error(op+" failed",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		logger.Err(err))
	return emptyStatus(c, fiber.StatusInternalServerError)
}
