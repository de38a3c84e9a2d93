package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
	"github.com/trailsense/hazardwatch-backend/internal/middleware"
	"github.com/trailsense/hazardwatch-backend/internal/services"
)

type LifecycleHandler struct {
	lifecycleService *services.LifecycleService
}

func NewLifecycleHandler(lifecycleService *services.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycleService: lifecycleService}
}

// Status returns the derived lifecycle status plus the caller's capability
// flags. Works without a token; the flags are then false.
func (h *LifecycleHandler) Status(c *fiber.Ctx) error {
	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	var actorID *uuid.UUID
	if id, err := middleware.CurrentUserID(c); err == nil {
		actorID = &id
	}

	status, err := h.lifecycleService.GetStatus(hazardID, actorID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(status)
}

func (h *LifecycleHandler) Extend(c *fiber.Ctx) error {
	actorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	var req dto.ExtendHazardRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	hazard, err := h.lifecycleService.Extend(hazardID, req.NewExpiresAt, actorID, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(hazard)
}

func (h *LifecycleHandler) SubmitReport(c *fiber.Ctx) error {
	actorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	var req dto.ResolutionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.lifecycleService.SubmitResolutionReport(hazardID, actorID, req.Note, req.EvidenceURL)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *LifecycleHandler) UpdateReport(c *fiber.Ctx) error {
	actorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	var req dto.ResolutionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.lifecycleService.UpdateResolutionReport(hazardID, actorID, req.Note, req.EvidenceURL)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}

func (h *LifecycleHandler) Confirm(c *fiber.Ctx) error {
	actorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	var req dto.ConfirmationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	counts, err := h.lifecycleService.ConfirmOrDispute(hazardID, actorID, req.Type, req.Note)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(counts)
}

func (h *LifecycleHandler) Withdraw(c *fiber.Ctx) error {
	actorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	counts, err := h.lifecycleService.WithdrawConfirmation(hazardID, actorID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(counts)
}

// Finalize is the moderator step that closes a community resolution once
// quorum holds.
func (h *LifecycleHandler) Finalize(c *fiber.Ctx) error {
	moderatorID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	hazard, err := h.lifecycleService.FinalizeResolution(hazardID, moderatorID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(hazard)
}

// AuditTrail returns the append-only lifecycle history for a hazard.
func (h *LifecycleHandler) AuditTrail(c *fiber.Ctx) error {
	hazardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid hazard ID")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	entries, err := h.lifecycleService.AuditTrail(hazardID, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}
