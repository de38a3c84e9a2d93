package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/trailsense/hazardwatch-backend/internal/apperr"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
)

// fail maps a service error onto the HTTP response. Typed errors carry
// their own status; anything untyped is a 500 with the detail logged, not
// leaked.
func fail(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Internal server error"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}
