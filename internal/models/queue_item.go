package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	QueueStatusPending     = "pending"
	QueueStatusApproved    = "approved"
	QueueStatusRejected    = "rejected"
	QueueStatusNeedsReview = "needs_review"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// PriorityWeight maps a priority label to its sort weight. Claims order by
// weight desc, created_at asc.
func PriorityWeight(priority string) int {
	switch priority {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// ModerationQueueItem is one pending review task. Items are never deleted;
// resolved items remain as audit records.
type ModerationQueueItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContentType string    `gorm:"size:30;not null;index:idx_queue_content" json:"content_type"` // hazard, image, template, user_report
	ContentID   string    `gorm:"size:255;not null;index:idx_queue_content" json:"content_id"`
	SubmittedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"submitted_by"`

	FlaggedReasons datatypes.JSONSlice[string] `json:"flagged_reasons"`

	Priority       string `gorm:"size:10;not null;default:'medium'" json:"priority"`
	PriorityWeight int    `gorm:"not null;default:2;index" json:"-"`
	Status         string `gorm:"size:20;not null;default:'pending';index" json:"status"`

	AssignedModerator *uuid.UUID `gorm:"type:uuid;index" json:"assigned_moderator,omitempty"`
	ModeratorNotes    string     `gorm:"size:2000" json:"moderator_notes,omitempty"`

	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (ModerationQueueItem) TableName() string {
	return "moderation_queue_items"
}

// Terminal reports whether the item has reached a final review outcome.
func (i *ModerationQueueItem) Terminal() bool {
	return i.Status == QueueStatusApproved || i.Status == QueueStatusRejected
}
