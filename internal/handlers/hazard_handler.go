package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
	"github.com/trailsense/hazardwatch-backend/internal/middleware"
	"github.com/trailsense/hazardwatch-backend/internal/services"
)

type HazardHandler struct {
	hazardService *services.HazardService
}

func NewHazardHandler(hazardService *services.HazardService) *HazardHandler {
	return &HazardHandler{hazardService: hazardService}
}

// Submit is the intake endpoint: screen, persist, enqueue on flag/queue.
func (h *HazardHandler) Submit(c *fiber.Ctx) error {
	reporterID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateHazardRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	hazard, decision, err := h.hazardService.Submit(reporterID, &req)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"hazard": hazard,
		"screening": fiber.Map{
			"action":                decision.Action,
			"risk_level":            decision.RiskLevel,
			"reasons":               decision.Reasons,
			"estimated_review_time": decision.EstimatedReviewTime,
		},
	})
}

func (h *HazardHandler) Get(c *fiber.Ctx) error {
	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	hazard, err := h.hazardService.Get(hazardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(hazard)
}

func (h *HazardHandler) List(c *fiber.Ctx) error {
	status := c.Query("status", "")
	category := c.Query("category", "")
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	hazards, total, err := h.hazardService.List(status, category, limit, offset)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"hazards": hazards,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Flag pushes a live hazard into the moderation queue on a user report.
func (h *HazardHandler) Flag(c *fiber.Ctx) error {
	actorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	var req dto.FlagHazardRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.hazardService.Flag(hazardID, actorID, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}
