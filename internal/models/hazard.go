package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Moderation statuses for a hazard. Independent of the derived lifecycle
// status, which is never stored.
const (
	HazardStatusPendingReview = "pending_review"
	HazardStatusApproved      = "approved"
	HazardStatusFlagged       = "flagged"
	HazardStatusRemoved       = "removed"
)

// Expiration types. Fixed at creation.
const (
	ExpirationPermanent      = "permanent"
	ExpirationAutoExpire     = "auto_expire"
	ExpirationSeasonal       = "seasonal"
	ExpirationUserResolvable = "user_resolvable"
)

// Hazard is a reported physical hazard pinned to a map location.
type Hazard struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID  uuid.UUID `gorm:"type:uuid;not null;index" json:"reporter_id"`
	Title       string    `gorm:"not null;size:200" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"size:50;not null;index" json:"category"` // plant, animal, terrain, water
	Latitude    float64   `gorm:"not null" json:"latitude"`
	Longitude   float64   `gorm:"not null" json:"longitude"`
	PhotoCount  int       `json:"photo_count"`

	// Snapshot of the reporter's trust score at submission time. Immutable.
	TrustScoreAtSubmission int `gorm:"not null" json:"trust_score_at_submission"`

	Status         string `gorm:"size:30;not null;default:'pending_review';index" json:"status"`
	ExpirationType string `gorm:"size:30;not null;default:'permanent'" json:"expiration_type"`

	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	ExtendedCount int        `gorm:"not null;default:0" json:"extended_count"`

	// Calendar months (1-12) during which a seasonal hazard is active.
	SeasonalMonths datatypes.JSONSlice[int] `json:"seasonal_months,omitempty"`

	// Set by the notifier once an expiring-soon notice has gone out;
	// cleared again whenever the hazard is extended.
	ExpiryNotified bool `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Reporter User `gorm:"foreignKey:ReporterID" json:"-"`
}

// Expirable reports whether the hazard type carries an expires_at.
func (h *Hazard) Expirable() bool {
	return h.ExpirationType == ExpirationAutoExpire || h.ExpirationType == ExpirationUserResolvable
}
