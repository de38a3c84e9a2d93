package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
	"github.com/trailsense/hazardwatch-backend/internal/services"
)

// SettingsHandler exposes the operator-tunable screening thresholds.
type SettingsHandler struct {
	settingsService *services.SettingsService
}

func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// Get returns the currently effective screening configuration.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settingsService.List()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(settings)
}

// Set upserts one override and applies it to the live screening service.
func (h *SettingsHandler) Set(c *fiber.Ctx) error {
	key := c.Params("key", "")
	if key == "" {
		return badRequest(c, "Key parameter is required")
	}

	var req dto.ScreeningSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Value == "" {
		return badRequest(c, "Value is required")
	}
	if req.Type == "" {
		req.Type = "string"
	}

	if err := h.settingsService.Set(key, req.Value, req.Type); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Setting updated", "key": key, "value": req.Value})
}

// Delete removes an override, falling the key back to its default.
func (h *SettingsHandler) Delete(c *fiber.Ctx) error {
	key := c.Params("key", "")
	if key == "" {
		return badRequest(c, "Key parameter is required")
	}

	if err := h.settingsService.Delete(key); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Setting removed", "key": key})
}
