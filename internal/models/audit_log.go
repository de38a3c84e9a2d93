package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit action tags.
const (
	AuditExpirationExtended    = "expiration_extended"
	AuditResolutionReported    = "resolution_reported"
	AuditResolutionUpdated     = "resolution_report_updated"
	AuditResolutionConfirmed   = "resolution_confirmed"
	AuditResolutionDisputed    = "resolution_disputed"
	AuditConfirmationChanged   = "confirmation_changed"
	AuditConfirmationWithdrawn = "confirmation_withdrawn"
	AuditResolutionFinalized   = "resolution_finalized"
)

// ExpirationAuditLog is the append-only history of lifecycle mutations.
// Rows are never updated or deleted.
type ExpirationAuditLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	HazardID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"hazard_id"`
	Action        string         `gorm:"size:50;not null;index" json:"action"`
	PerformedBy   uuid.UUID      `gorm:"type:uuid;not null" json:"performed_by"`
	PreviousState datatypes.JSON `json:"previous_state,omitempty"`
	NewState      datatypes.JSON `json:"new_state,omitempty"`
	Reason        string         `gorm:"size:500" json:"reason,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

func (ExpirationAuditLog) TableName() string {
	return "expiration_audit_logs"
}
