package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScreeningSetting stores operator-tunable screening values (thresholds,
// trust bands) so the decision table can be retuned without a redeploy.
type ScreeningSetting struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Key       string    `gorm:"size:100;not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Type      string    `gorm:"size:20;default:'string'" json:"type"` // string, float, int, bands
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *ScreeningSetting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (ScreeningSetting) TableName() string {
	return "screening_settings"
}
