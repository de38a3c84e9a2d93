package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailsense/hazardwatch-backend/internal/apperr"
)

func newSettingsService(t *testing.T) (*SettingsService, *ScreeningService) {
	t.Helper()
	db := newTestDB(t)
	screening := NewScreeningService(testScreeningConfig())
	return NewSettingsService(db, screening, testScreeningConfig()), screening
}

func TestSettingsDefaults(t *testing.T) {
	svc, _ := newSettingsService(t)

	cfg, err := svc.Effective()
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.AutoRejectConfidence)
	assert.Equal(t, 500, cfg.AutoApproveTrust)
	assert.Equal(t, 0.3, cfg.Multiplier(500))
}

func TestSettingsOverrideAndReload(t *testing.T) {
	svc, screening := newSettingsService(t)

	require.NoError(t, svc.Set(SettingFlagRisk, "0.4", "float"))

	// The override is layered over the defaults and pushed to the live
	// screening service.
	cfg, err := svc.Effective()
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.FlagRisk)
	assert.Equal(t, 0.4, screening.Config().FlagRisk)
	assert.Equal(t, 0.9, cfg.AutoRejectConfidence)

	// Updating an existing override replaces it.
	require.NoError(t, svc.Set(SettingFlagRisk, "0.5", "float"))
	cfg, err = svc.Effective()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.FlagRisk)
}

func TestSettingsValidation(t *testing.T) {
	svc, _ := newSettingsService(t)

	err := svc.Set(SettingFlagRisk, "1.5", "float")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = svc.Set(SettingAutoApproveTrust, "-10", "int")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = svc.Set("decision_speed", "fast", "string")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSettingsTrustBandsOverride(t *testing.T) {
	svc, screening := newSettingsService(t)

	require.NoError(t, svc.Set(SettingTrustBands, "1000:0.1,100:0.7", "string"))
	cfg := screening.Config()
	assert.Equal(t, 0.1, cfg.Multiplier(1000))
	assert.Equal(t, 0.7, cfg.Multiplier(500))
	assert.Equal(t, 1.0, cfg.Multiplier(50))
}

func TestSettingsDelete(t *testing.T) {
	svc, screening := newSettingsService(t)

	require.NoError(t, svc.Set(SettingFlagRisk, "0.4", "float"))
	require.NoError(t, svc.Delete(SettingFlagRisk))
	assert.Equal(t, 0.6, screening.Config().FlagRisk)

	err := svc.Delete(SettingFlagRisk)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSettingsList(t *testing.T) {
	svc, _ := newSettingsService(t)
	require.NoError(t, svc.Set(SettingAutoApproveTrust, "750", "int"))

	list, err := svc.List()
	require.NoError(t, err)
	assert.Equal(t, 750, list[SettingAutoApproveTrust])
	assert.Equal(t, 0.9, list[SettingAutoRejectConfidence])
	assert.NotEmpty(t, list[SettingTrustBands])
}
