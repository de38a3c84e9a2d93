package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
	"github.com/trailsense/hazardwatch-backend/internal/middleware"
	"github.com/trailsense/hazardwatch-backend/internal/services"
)

type ModerationHandler struct {
	queueService *services.QueueService
}

func NewModerationHandler(queueService *services.QueueService) *ModerationHandler {
	return &ModerationHandler{queueService: queueService}
}

// Next claims the highest-priority oldest unassigned item for the caller.
// An empty queue is a 204, not an error.
func (h *ModerationHandler) Next(c *fiber.Ctx) error {
	moderatorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	item, err := h.queueService.GetNextItem(moderatorID)
	if err != nil {
		return fail(c, err)
	}
	if item == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(item)
}

// Claim claims a specific item, for moderators following a direct link.
func (h *ModerationHandler) Claim(c *fiber.Ctx) error {
	moderatorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	item, err := h.queueService.GetSpecificItem(itemID, moderatorID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(item)
}

func (h *ModerationHandler) Release(c *fiber.Ctx) error {
	moderatorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	if err := h.queueService.Release(itemID, moderatorID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item released"})
}

func (h *ModerationHandler) List(c *fiber.Ctx) error {
	status := c.Query("status", "")
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	items, total, err := h.queueService.GetQueue(status, limit, offset)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *ModerationHandler) Action(c *fiber.Ctx) error {
	moderatorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	var req dto.ModerationActionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.queueService.ProcessAction(itemID, req.Action, moderatorID, req.Notes)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(item)
}

func (h *ModerationHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.queueService.GetStats()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}
