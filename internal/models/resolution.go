package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConfirmationConfirmed = "confirmed"
	ConfirmationDisputed  = "disputed"
)

// HazardResolutionReport is a claim that a user_resolvable hazard no longer
// exists. At most one report per hazard; further reporters vote on it.
type HazardResolutionReport struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HazardID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"hazard_id"`
	ReportedBy         uuid.UUID `gorm:"type:uuid;not null;index" json:"reported_by"`
	ResolutionNote     string    `gorm:"size:1000;not null" json:"resolution_note"`
	EvidenceURL        string    `gorm:"size:500" json:"evidence_url,omitempty"`
	TrustScoreAtReport int       `gorm:"not null" json:"trust_score_at_report"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HazardResolutionConfirmation is one user's vote on a pending resolution
// report. One row per (hazard, user); re-votes update the row in place.
type HazardResolutionConfirmation struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HazardID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_confirmation_hazard_user" json:"hazard_id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_confirmation_hazard_user" json:"user_id"`
	ConfirmationType string    `gorm:"size:10;not null" json:"confirmation_type"` // confirmed, disputed
	Note             string    `gorm:"size:500" json:"note,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
