package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/trailsense/hazardwatch-backend/internal/apperr"
	"github.com/trailsense/hazardwatch-backend/internal/config"
	"github.com/trailsense/hazardwatch-backend/internal/models"
	"gorm.io/gorm"
)

// Screening setting keys operators may override.
const (
	SettingAutoRejectConfidence = "auto_reject_confidence"
	SettingAutoRejectRisk       = "auto_reject_risk"
	SettingAutoApproveTrust     = "auto_approve_trust"
	SettingAutoApproveRisk      = "auto_approve_risk"
	SettingFlagRisk             = "flag_risk"
	SettingTrustBands           = "trust_bands"
)

// SettingsService layers DB-stored overrides over the env-configured
// screening defaults and pushes the effective table into the live
// screening service, so thresholds can be retuned without a redeploy.
type SettingsService struct {
	db        *gorm.DB
	screening *ScreeningService
	defaults  config.ScreeningConfig
}

func NewSettingsService(db *gorm.DB, screening *ScreeningService, defaults config.ScreeningConfig) *SettingsService {
	return &SettingsService{db: db, screening: screening, defaults: defaults}
}

// ApplyStored loads any persisted overrides and applies them. Called once
// at startup.
func (s *SettingsService) ApplyStored() error {
	effective, err := s.Effective()
	if err != nil {
		return err
	}
	s.screening.Reload(effective)
	return nil
}

// Effective returns the defaults overlaid with stored overrides.
// Unparseable stored values are skipped with a warning rather than taking
// the screening pipeline down.
func (s *SettingsService) Effective() (config.ScreeningConfig, error) {
	cfg := s.defaults

	var settings []models.ScreeningSetting
	if err := s.db.Find(&settings).Error; err != nil {
		return cfg, fmt.Errorf("load screening settings: %w", err)
	}

	for _, setting := range settings {
		if err := applySetting(&cfg, setting.Key, setting.Value); err != nil {
			slog.Warn("skipping invalid screening setting",
				"key", setting.Key, "value", setting.Value, "error", err)
		}
	}
	return cfg, nil
}

// Set validates and upserts one override, then reloads the live config.
func (s *SettingsService) Set(key, value, valueType string) error {
	probe := s.defaults
	if err := applySetting(&probe, key, value); err != nil {
		return err
	}

	var setting models.ScreeningSetting
	err := s.db.Where("key = ?", key).First(&setting).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		setting = models.ScreeningSetting{Key: key, Value: value, Type: valueType}
		if err := s.db.Create(&setting).Error; err != nil {
			return fmt.Errorf("create screening setting: %w", err)
		}
	case err != nil:
		return fmt.Errorf("load screening setting: %w", err)
	default:
		setting.Value = value
		setting.Type = valueType
		if err := s.db.Save(&setting).Error; err != nil {
			return fmt.Errorf("update screening setting: %w", err)
		}
	}

	return s.ApplyStored()
}

// Delete removes an override, falling the key back to its default.
func (s *SettingsService) Delete(key string) error {
	result := s.db.Where("key = ?", key).Delete(&models.ScreeningSetting{})
	if result.Error != nil {
		return fmt.Errorf("delete screening setting: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("no override for %q", key)
	}
	return s.ApplyStored()
}

// List returns the current effective values keyed by setting name.
func (s *SettingsService) List() (map[string]any, error) {
	cfg, err := s.Effective()
	if err != nil {
		return nil, err
	}
	bands := make([]map[string]any, 0, len(cfg.TrustBands))
	for _, b := range cfg.TrustBands {
		bands = append(bands, map[string]any{"min_score": b.MinScore, "multiplier": b.Multiplier})
	}
	return map[string]any{
		SettingAutoRejectConfidence: cfg.AutoRejectConfidence,
		SettingAutoRejectRisk:       cfg.AutoRejectRisk,
		SettingAutoApproveTrust:     cfg.AutoApproveTrust,
		SettingAutoApproveRisk:      cfg.AutoApproveRisk,
		SettingFlagRisk:             cfg.FlagRisk,
		SettingTrustBands:           bands,
	}, nil
}

func applySetting(cfg *config.ScreeningConfig, key, value string) error {
	switch key {
	case SettingAutoRejectConfidence, SettingAutoRejectRisk, SettingAutoApproveRisk, SettingFlagRisk:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return apperr.Validation("%s must be a number in [0,1]", key)
		}
		switch key {
		case SettingAutoRejectConfidence:
			cfg.AutoRejectConfidence = f
		case SettingAutoRejectRisk:
			cfg.AutoRejectRisk = f
		case SettingAutoApproveRisk:
			cfg.AutoApproveRisk = f
		case SettingFlagRisk:
			cfg.FlagRisk = f
		}
	case SettingAutoApproveTrust:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return apperr.Validation("%s must be a non-negative integer", key)
		}
		cfg.AutoApproveTrust = n
	case SettingTrustBands:
		cfg.TrustBands = config.ParseTrustBands(value)
	default:
		return apperr.Validation("unknown screening setting %q", key)
	}
	return nil
}
