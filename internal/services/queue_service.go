package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trailsense/hazardwatch-backend/internal/apperr"
	"github.com/trailsense/hazardwatch-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Moderator actions on a claimed item.
const (
	ModerationApprove  = "approve"
	ModerationReject   = "reject"
	ModerationEscalate = "escalate"
)

// Trust score deltas applied to the submitter when a moderator resolves
// their content.
const (
	trustDeltaApproved = 5
	trustDeltaRejected = -10
)

// claimAttempts bounds how many candidates GetNextItem tries before
// reporting an empty queue under contention.
const claimAttempts = 5

var validContentTypes = map[string]bool{
	"hazard": true, "image": true, "template": true, "user_report": true,
}

// QueueService is the durable moderation queue. Claims are single
// conditional updates so two moderators can never own the same item.
type QueueService struct {
	db    *gorm.DB
	trust TrustScoreProvider
}

func NewQueueService(db *gorm.DB, trust TrustScoreProvider) *QueueService {
	return &QueueService{db: db, trust: trust}
}

// AddQueueItemInput describes a new review task.
type AddQueueItemInput struct {
	ContentType    string
	ContentID      string
	SubmittedBy    uuid.UUID
	FlaggedReasons []string
	Priority       string
}

// AddToQueue inserts a new pending item. Fails with a conflict if an
// unresolved item already exists for the same (content_type, content_id) —
// the existing item is the single pending decision for that content.
func (s *QueueService) AddToQueue(input AddQueueItemInput) (*models.ModerationQueueItem, error) {
	if !validContentTypes[input.ContentType] {
		return nil, apperr.Validation("invalid content_type %q", input.ContentType)
	}
	if input.ContentID == "" {
		return nil, apperr.Validation("content_id is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	switch priority {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
	default:
		return nil, apperr.Validation("invalid priority %q", priority)
	}

	item := &models.ModerationQueueItem{
		ID:             uuid.New(),
		ContentType:    input.ContentType,
		ContentID:      input.ContentID,
		SubmittedBy:    input.SubmittedBy,
		FlaggedReasons: datatypes.NewJSONSlice(input.FlaggedReasons),
		Priority:       priority,
		PriorityWeight: models.PriorityWeight(priority),
		Status:         models.QueueStatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.ModerationQueueItem
		err := tx.Where("content_type = ? AND content_id = ? AND status IN ?",
			input.ContentType, input.ContentID,
			[]string{models.QueueStatusPending, models.QueueStatusNeedsReview}).
			First(&existing).Error
		if err == nil {
			return apperr.Conflict("unresolved queue item %s already exists for %s/%s",
				existing.ID, input.ContentType, input.ContentID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing queue item: %w", err)
		}
		return tx.Create(item).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetNextItem atomically claims the highest-priority oldest unassigned
// pending item for the moderator. The claim is a conditional update that
// only succeeds while assigned_moderator is still null; the loser of a
// concurrent race simply moves on to the next candidate. Returns nil when
// nothing is claimable.
func (s *QueueService) GetNextItem(moderatorID uuid.UUID) (*models.ModerationQueueItem, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		var candidate models.ModerationQueueItem
		err := s.db.Where("status = ? AND assigned_moderator IS NULL", models.QueueStatusPending).
			Order("priority_weight DESC, created_at ASC").
			Offset(attempt).
			First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find claimable item: %w", err)
		}

		claimed, err := s.claim(candidate.ID, moderatorID)
		if err != nil {
			return nil, err
		}
		if claimed != nil {
			return claimed, nil
		}
		// Lost the race for this candidate; try the next one.
	}
	return nil, nil
}

// GetSpecificItem claims a named item for moderators following a direct
// link. Already owning the item is not an error.
func (s *QueueService) GetSpecificItem(itemID, moderatorID uuid.UUID) (*models.ModerationQueueItem, error) {
	item, err := s.getItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.Terminal() {
		return nil, apperr.Conflict("item %s is already resolved", itemID)
	}
	if item.AssignedModerator != nil {
		if *item.AssignedModerator == moderatorID {
			return item, nil
		}
		return nil, apperr.Conflict("item %s is claimed by another moderator", itemID)
	}

	claimed, err := s.claim(itemID, moderatorID)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, apperr.Conflict("item %s is claimed by another moderator", itemID)
	}
	return claimed, nil
}

// claim performs the atomic conditional assignment. Returns nil without an
// error when the item was concurrently claimed or resolved.
func (s *QueueService) claim(itemID, moderatorID uuid.UUID) (*models.ModerationQueueItem, error) {
	result := s.db.Model(&models.ModerationQueueItem{}).
		Where("id = ? AND status = ? AND assigned_moderator IS NULL", itemID, models.QueueStatusPending).
		Update("assigned_moderator", moderatorID)
	if result.Error != nil {
		return nil, fmt.Errorf("claim item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.getItem(itemID)
}

// Release hands a claimed item back to the pending pool.
func (s *QueueService) Release(itemID, moderatorID uuid.UUID) error {
	result := s.db.Model(&models.ModerationQueueItem{}).
		Where("id = ? AND status = ? AND assigned_moderator = ?", itemID, models.QueueStatusPending, moderatorID).
		Update("assigned_moderator", nil)
	if result.Error != nil {
		return fmt.Errorf("release item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		item, err := s.getItem(itemID)
		if err != nil {
			return err
		}
		if item.AssignedModerator == nil || *item.AssignedModerator != moderatorID {
			return apperr.Forbidden("item %s is not assigned to you", itemID)
		}
		return apperr.Conflict("item %s is no longer pending", itemID)
	}
	return nil
}

// GetQueue is a paginated, non-mutating read.
func (s *QueueService) GetQueue(status string, limit, offset int) ([]models.ModerationQueueItem, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var items []models.ModerationQueueItem
	var total int64

	query := s.db.Model(&models.ModerationQueueItem{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count queue items: %w", err)
	}
	err := query.Order("priority_weight DESC, created_at ASC").
		Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list queue items: %w", err)
	}
	return items, total, nil
}

// ProcessAction applies a moderator decision to a claimed item and
// propagates it to the underlying content. Unassigned items may be
// resolved directly; items claimed by someone else may not.
func (s *QueueService) ProcessAction(itemID uuid.UUID, action string, moderatorID uuid.UUID, notes string) (*models.ModerationQueueItem, error) {
	switch action {
	case ModerationApprove, ModerationReject, ModerationEscalate:
	default:
		return nil, apperr.Validation("invalid action %q", action)
	}

	item, err := s.getItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.Terminal() {
		return nil, apperr.Conflict("item %s is already resolved", itemID)
	}
	if item.AssignedModerator != nil && *item.AssignedModerator != moderatorID {
		return nil, apperr.Forbidden("item %s is assigned to another moderator", itemID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"assigned_moderator": moderatorID,
			"moderator_notes":    notes,
		}
		switch action {
		case ModerationApprove:
			updates["status"] = models.QueueStatusApproved
			updates["resolved_at"] = time.Now().UTC()
		case ModerationReject:
			updates["status"] = models.QueueStatusRejected
			updates["resolved_at"] = time.Now().UTC()
		case ModerationEscalate:
			updates["status"] = models.QueueStatusNeedsReview
			updates["assigned_moderator"] = nil
		}

		result := tx.Model(&models.ModerationQueueItem{}).
			Where("id = ? AND status IN ?", itemID,
				[]string{models.QueueStatusPending, models.QueueStatusNeedsReview}).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("update item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.Conflict("item %s was resolved concurrently", itemID)
		}

		if action == ModerationEscalate {
			return nil
		}
		return s.propagate(tx, item, action)
	})
	if err != nil {
		return nil, err
	}

	if action != ModerationEscalate {
		s.adjustSubmitterTrust(item, action)
	}
	return s.getItem(itemID)
}

// propagate applies the decision to the underlying content record.
func (s *QueueService) propagate(tx *gorm.DB, item *models.ModerationQueueItem, action string) error {
	if item.ContentType != "hazard" {
		return nil
	}
	status := models.HazardStatusApproved
	if action == ModerationReject {
		status = models.HazardStatusRemoved
	}
	result := tx.Model(&models.Hazard{}).
		Where("id = ?", item.ContentID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("propagate decision to hazard: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("hazard %s not found", item.ContentID)
	}
	return nil
}

// adjustSubmitterTrust nudges the submitter's trust score after a decision.
// Best-effort: a failed adjustment is logged, not propagated.
func (s *QueueService) adjustSubmitterTrust(item *models.ModerationQueueItem, action string) {
	delta := trustDeltaApproved
	reason := "content approved"
	if action == ModerationReject {
		delta = trustDeltaRejected
		reason = "content rejected"
	}
	if err := s.trust.Adjust(item.SubmittedBy, delta, reason); err != nil {
		slog.Warn("trust adjustment failed",
			"user_id", item.SubmittedBy, "delta", delta, "error", err)
	}
}

// QueueStats aggregates counts for moderator dashboards.
type QueueStats struct {
	ByStatus          map[string]int64 `json:"by_status"`
	PendingByPriority map[string]int64 `json:"pending_by_priority"`
	OldestPendingAge  *int64           `json:"oldest_pending_age_seconds,omitempty"`
}

func (s *QueueService) GetStats() (*QueueStats, error) {
	stats := &QueueStats{
		ByStatus:          make(map[string]int64),
		PendingByPriority: make(map[string]int64),
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	err := s.db.Model(&models.ModerationQueueItem{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for _, sc := range byStatus {
		stats.ByStatus[sc.Status] = sc.Count
	}

	type priorityCount struct {
		Priority string
		Count    int64
	}
	var byPriority []priorityCount
	err = s.db.Model(&models.ModerationQueueItem{}).
		Select("priority, COUNT(*) as count").
		Where("status = ?", models.QueueStatusPending).
		Group("priority").
		Scan(&byPriority).Error
	if err != nil {
		return nil, fmt.Errorf("count by priority: %w", err)
	}
	for _, pc := range byPriority {
		stats.PendingByPriority[pc.Priority] = pc.Count
	}

	var oldest models.ModerationQueueItem
	err = s.db.Where("status = ?", models.QueueStatusPending).
		Order("created_at ASC").
		First(&oldest).Error
	if err == nil {
		age := int64(time.Since(oldest.CreatedAt).Seconds())
		stats.OldestPendingAge = &age
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find oldest pending: %w", err)
	}

	return stats, nil
}

func (s *QueueService) getItem(itemID uuid.UUID) (*models.ModerationQueueItem, error) {
	var item models.ModerationQueueItem
	if err := s.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("queue item %s not found", itemID)
		}
		return nil, fmt.Errorf("load queue item: %w", err)
	}
	return &item, nil
}
