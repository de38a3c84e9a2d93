package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/trailsense/hazardwatch-backend/internal/apperr"
	"github.com/trailsense/hazardwatch-backend/internal/models"
	"gorm.io/gorm"
)

// TrustScoreProvider supplies per-user trust scores and accepts score
// adjustments. The screening and lifecycle services only ever see the
// number; they never fetch or cache it themselves.
type TrustScoreProvider interface {
	Score(userID uuid.UUID) (int, error)
	Adjust(userID uuid.UUID, delta int, reason string) error
}

// DBTrustProvider reads and adjusts trust scores on the users table.
type DBTrustProvider struct {
	db *gorm.DB
}

func NewDBTrustProvider(db *gorm.DB) *DBTrustProvider {
	return &DBTrustProvider{db: db}
}

func (p *DBTrustProvider) Score(userID uuid.UUID) (int, error) {
	var user models.User
	if err := p.db.Select("trust_score").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("user %s not found", userID)
		}
		return 0, fmt.Errorf("load trust score: %w", err)
	}
	return user.TrustScore, nil
}

// Adjust applies the delta atomically and floors the score at zero.
func (p *DBTrustProvider) Adjust(userID uuid.UUID, delta int, reason string) error {
	result := p.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("trust_score", gorm.Expr("CASE WHEN trust_score + ? < 0 THEN 0 ELSE trust_score + ? END", delta, delta))
	if result.Error != nil {
		return fmt.Errorf("adjust trust score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user %s not found", userID)
	}
	return nil
}
