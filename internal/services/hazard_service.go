package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trailsense/hazardwatch-backend/internal/apperr"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
	"github.com/trailsense/hazardwatch-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var validCategories = map[string]bool{
	"plant": true, "animal": true, "terrain": true, "water": true,
}

var validExpirationTypes = map[string]bool{
	models.ExpirationPermanent:      true,
	models.ExpirationAutoExpire:     true,
	models.ExpirationSeasonal:       true,
	models.ExpirationUserResolvable: true,
}

// HazardService is submission intake: it screens a submission against the
// reporter's trust score, persists the hazard with the resulting moderation
// status and hands flagged/queued content to the moderation queue.
type HazardService struct {
	db        *gorm.DB
	screening *ScreeningService
	queue     *QueueService
	trust     TrustScoreProvider
}

func NewHazardService(db *gorm.DB, screening *ScreeningService, queue *QueueService, trust TrustScoreProvider) *HazardService {
	return &HazardService{db: db, screening: screening, queue: queue, trust: trust}
}

// Submit runs a new hazard report through pre-screening and persists it.
func (s *HazardService) Submit(reporterID uuid.UUID, req *dto.CreateHazardRequest) (*models.Hazard, *Decision, error) {
	if err := validateSubmission(req); err != nil {
		return nil, nil, err
	}

	trustScore, err := s.trust.Score(reporterID)
	if err != nil {
		return nil, nil, err
	}

	decision := s.screening.Screen(SubmissionInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		PhotoCount:  req.PhotoCount,
		PhotoBytes:  req.PhotoBytes,
	}, trustScore)

	hazard := &models.Hazard{
		ID:                     uuid.New(),
		ReporterID:             reporterID,
		Title:                  strings.TrimSpace(req.Title),
		Description:            strings.TrimSpace(req.Description),
		Category:               req.Category,
		TrustScoreAtSubmission: trustScore,
		Status:                 statusForDecision(decision.Action),
		ExpirationType:         req.ExpirationType,
		ExpiresAt:              req.ExpiresAt,
		SeasonalMonths:         datatypes.NewJSONSlice(req.SeasonalMonths),
	}
	if req.Latitude != nil {
		hazard.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		hazard.Longitude = *req.Longitude
	}
	if req.PhotoCount != nil {
		hazard.PhotoCount = *req.PhotoCount
	}

	if err := s.db.Create(hazard).Error; err != nil {
		return nil, nil, fmt.Errorf("create hazard: %w", err)
	}

	if decision.Action == ScreeningFlag || decision.Action == ScreeningQueue {
		_, err := s.queue.AddToQueue(AddQueueItemInput{
			ContentType:    "hazard",
			ContentID:      hazard.ID.String(),
			SubmittedBy:    reporterID,
			FlaggedReasons: decision.Reasons,
			Priority:       decision.Priority,
		})
		if err != nil {
			// The hazard stays in pending_review; an operator can re-queue it.
			slog.Error("failed to enqueue screened hazard",
				"hazard_id", hazard.ID, "action", decision.Action, "error", err)
		}
	}

	slog.Info("hazard submitted",
		"hazard_id", hazard.ID,
		"action", decision.Action,
		"raw_risk", decision.RawRisk,
		"adjusted_risk", decision.AdjustedRisk,
		"trust_score", trustScore)

	return hazard, &decision, nil
}

// Flag lets any signed-in user push a live hazard into the moderation
// queue. Duplicate flags while one is pending are conflicts.
func (s *HazardService) Flag(hazardID, actorID uuid.UUID, reason string) (*models.ModerationQueueItem, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("a flag reason is required")
	}

	hazard, err := s.Get(hazardID)
	if err != nil {
		return nil, err
	}
	if hazard.Status == models.HazardStatusRemoved {
		return nil, apperr.Conflict("hazard %s is already removed", hazardID)
	}

	item, err := s.queue.AddToQueue(AddQueueItemInput{
		ContentType:    "hazard",
		ContentID:      hazardID.String(),
		SubmittedBy:    hazard.ReporterID,
		FlaggedReasons: []string{"user_flag: " + reason},
		Priority:       models.PriorityHigh,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Hazard{}).Where("id = ?", hazardID).
		Update("status", models.HazardStatusFlagged).Error; err != nil {
		return nil, fmt.Errorf("mark hazard flagged: %w", err)
	}
	return item, nil
}

func (s *HazardService) Get(hazardID uuid.UUID) (*models.Hazard, error) {
	var hazard models.Hazard
	if err := s.db.First(&hazard, "id = ?", hazardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("hazard %s not found", hazardID)
		}
		return nil, fmt.Errorf("load hazard: %w", err)
	}
	return &hazard, nil
}

func (s *HazardService) List(status, category string, limit, offset int) ([]models.Hazard, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var hazards []models.Hazard
	var total int64

	query := s.db.Model(&models.Hazard{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count hazards: %w", err)
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&hazards).Error; err != nil {
		return nil, 0, fmt.Errorf("list hazards: %w", err)
	}
	return hazards, total, nil
}

func statusForDecision(action string) string {
	switch action {
	case ScreeningApprove:
		return models.HazardStatusApproved
	case ScreeningReject:
		return models.HazardStatusRemoved
	case ScreeningFlag:
		return models.HazardStatusFlagged
	default:
		return models.HazardStatusPendingReview
	}
}

func validateSubmission(req *dto.CreateHazardRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperr.Validation("title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return apperr.Validation("description is required")
	}
	if !validCategories[req.Category] {
		return apperr.Validation("invalid category %q", req.Category)
	}
	if !validExpirationTypes[req.ExpirationType] {
		return apperr.Validation("invalid expiration_type %q", req.ExpirationType)
	}

	switch req.ExpirationType {
	case models.ExpirationSeasonal:
		if req.ExpiresAt != nil {
			return apperr.Validation("seasonal hazards cannot carry an expiry")
		}
		if len(req.SeasonalMonths) == 0 {
			return apperr.Validation("seasonal hazards require at least one active month")
		}
		for _, m := range req.SeasonalMonths {
			if m < 1 || m > 12 {
				return apperr.Validation("seasonal months must be between 1 and 12")
			}
		}
	case models.ExpirationAutoExpire, models.ExpirationUserResolvable:
		if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
			return apperr.Validation("expires_at must be in the future")
		}
	default:
		if req.ExpiresAt != nil {
			return apperr.Validation("%s hazards cannot carry an expiry", req.ExpirationType)
		}
	}
	return nil
}
