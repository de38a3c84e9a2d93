package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trailsense/hazardwatch-backend/internal/config"
	"github.com/trailsense/hazardwatch-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared-cache DSN so concurrent goroutines in a test see the
	// same in-memory database without bleeding into other tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// One connection keeps concurrent test goroutines serialized on writes
	// instead of tripping SQLITE_BUSY.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Hazard{},
		&models.ModerationQueueItem{},
		&models.HazardResolutionReport{},
		&models.HazardResolutionConfirmation{},
		&models.ExpirationAuditLog{},
		&models.ScreeningSetting{},
		&models.RefreshToken{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, role string, trust int) *models.User {
	t.Helper()
	u := &models.User{
		ID:         uuid.New(),
		Email:      fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		Password:   "x",
		Role:       role,
		TrustScore: trust,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

type hazardOpts struct {
	expirationType string
	expiresAt      *time.Time
	resolvedAt     *time.Time
	status         string
	extendedCount  int
}

func createTestHazard(t *testing.T, db *gorm.DB, reporter uuid.UUID, opts hazardOpts) *models.Hazard {
	t.Helper()
	if opts.expirationType == "" {
		opts.expirationType = models.ExpirationPermanent
	}
	if opts.status == "" {
		opts.status = models.HazardStatusApproved
	}
	h := &models.Hazard{
		ID:             uuid.New(),
		ReporterID:     reporter,
		Category:       "terrain",
		Title:          "washed out footbridge",
		Description:    "the footbridge over the creek is gone after the storm",
		Latitude:       47.6062,
		Longitude:      -122.3321,
		Status:         opts.status,
		ExpirationType: opts.expirationType,
		ExpiresAt:      opts.expiresAt,
		ResolvedAt:     opts.resolvedAt,
		ExtendedCount:  opts.extendedCount,
	}
	require.NoError(t, db.Create(h).Error)
	return h
}

func testScreeningConfig() config.ScreeningConfig {
	return config.ScreeningConfig{
		AutoRejectConfidence: 0.9,
		AutoRejectRisk:       0.8,
		AutoApproveTrust:     500,
		AutoApproveRisk:      0.2,
		FlagRisk:             0.6,
		TrustBands:           config.DefaultTrustBands(),
	}
}

func timePtr(ts time.Time) *time.Time { return &ts }
