package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trailsense/hazardwatch-backend/internal/apperr"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
	"github.com/trailsense/hazardwatch-backend/internal/models"
)

func newHazardService(t *testing.T) (*HazardService, *QueueService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	trust := NewDBTrustProvider(db)
	queue := NewQueueService(db, trust)
	screening := NewScreeningService(testScreeningConfig())
	return NewHazardService(db, screening, queue, trust), queue, db
}

func validRequest() *dto.CreateHazardRequest {
	lat, lng := 48.7767, -113.7870
	return &dto.CreateHazardRequest{
		Title:          "Grizzly sighting near the lake",
		Description:    "Sow with two cubs grazing right beside the trail at the lake outlet.",
		Category:       "animal",
		Latitude:       &lat,
		Longitude:      &lng,
		ExpirationType: models.ExpirationAutoExpire,
		ExpiresAt:      timePtr(time.Now().Add(7 * 24 * time.Hour)),
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, db := newHazardService(t)
	reporter := createTestUser(t, db, models.RoleUser, 100)

	cases := []struct {
		name   string
		mutate func(*dto.CreateHazardRequest)
	}{
		{"missing title", func(r *dto.CreateHazardRequest) { r.Title = "  " }},
		{"missing description", func(r *dto.CreateHazardRequest) { r.Description = "" }},
		{"bad category", func(r *dto.CreateHazardRequest) { r.Category = "weather" }},
		{"bad expiration type", func(r *dto.CreateHazardRequest) { r.ExpirationType = "forever" }},
		{"past expiry", func(r *dto.CreateHazardRequest) {
			r.ExpiresAt = timePtr(time.Now().Add(-time.Hour))
		}},
		{"permanent with expiry", func(r *dto.CreateHazardRequest) {
			r.ExpirationType = models.ExpirationPermanent
		}},
		{"seasonal without months", func(r *dto.CreateHazardRequest) {
			r.ExpirationType = models.ExpirationSeasonal
			r.ExpiresAt = nil
		}},
		{"seasonal with bad month", func(r *dto.CreateHazardRequest) {
			r.ExpirationType = models.ExpirationSeasonal
			r.ExpiresAt = nil
			r.SeasonalMonths = []int{0, 13}
		}},
		{"seasonal with expiry", func(r *dto.CreateHazardRequest) {
			r.ExpirationType = models.ExpirationSeasonal
			r.SeasonalMonths = []int{6, 7}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(req)
			_, _, err := svc.Submit(reporter.ID, req)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "err: %v", err)
		})
	}
}

func TestSubmitUnknownReporter(t *testing.T) {
	svc, _, _ := newHazardService(t)
	_, _, err := svc.Submit(uuid.New(), validRequest())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSubmitCleanLowTrustQueues(t *testing.T) {
	svc, queue, db := newHazardService(t)
	reporter := createTestUser(t, db, models.RoleUser, 30)

	hazard, decision, err := svc.Submit(reporter.ID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, ScreeningQueue, decision.Action)
	assert.Equal(t, models.HazardStatusPendingReview, hazard.Status)
	assert.Equal(t, 30, hazard.TrustScoreAtSubmission)

	// The submission landed in the moderation queue.
	items, total, err := queue.GetQueue(models.QueueStatusPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, hazard.ID.String(), items[0].ContentID)
}

func TestSubmitTrustedCleanApproves(t *testing.T) {
	svc, queue, db := newHazardService(t)
	reporter := createTestUser(t, db, models.RoleUser, 800)

	hazard, decision, err := svc.Submit(reporter.ID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, ScreeningApprove, decision.Action)
	assert.Equal(t, models.HazardStatusApproved, hazard.Status)

	// Approved submissions skip the queue entirely.
	_, total, err := queue.GetQueue("", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSubmitSpamIsRejected(t *testing.T) {
	svc, _, db := newHazardService(t)
	reporter := createTestUser(t, db, models.RoleUser, 0)

	req := validRequest()
	req.Description = "BUY CHEAP GEAR NOWWWW!!!! visit www.spam-site.example CALL 555-123-4567 CHEAP STUFF"
	hazard, decision, err := svc.Submit(reporter.ID, req)
	require.NoError(t, err)
	assert.Equal(t, ScreeningReject, decision.Action)
	assert.Equal(t, models.HazardStatusRemoved, hazard.Status)
}

func TestSubmitRiskyContentIsFlagged(t *testing.T) {
	svc, queue, db := newHazardService(t)
	reporter := createTestUser(t, db, models.RoleUser, 0)

	req := validRequest()
	req.Description = "this fucking bridge is out, check https://example.com/pics"
	hazard, decision, err := svc.Submit(reporter.ID, req)
	require.NoError(t, err)
	assert.Equal(t, ScreeningFlag, decision.Action)
	assert.Equal(t, models.HazardStatusFlagged, hazard.Status)

	items, _, err := queue.GetQueue(models.QueueStatusPending, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].FlaggedReasons, "inappropriate_language")
	assert.Equal(t, decision.Priority, items[0].Priority)
}

func TestFlag(t *testing.T) {
	svc, _, db := newHazardService(t)
	reporter := createTestUser(t, db, models.RoleUser, 100)
	flagger := createTestUser(t, db, models.RoleUser, 100)
	hazard := createTestHazard(t, db, reporter.ID, hazardOpts{})

	_, err := svc.Flag(hazard.ID, flagger.ID, "  ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	item, err := svc.Flag(hazard.ID, flagger.ID, "duplicate of another report")
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, item.Priority)
	assert.Contains(t, item.FlaggedReasons, "user_flag: duplicate of another report")

	var h models.Hazard
	require.NoError(t, db.First(&h, "id = ?", hazard.ID).Error)
	assert.Equal(t, models.HazardStatusFlagged, h.Status)

	// A second flag while the first is pending is a conflict.
	_, err = svc.Flag(hazard.ID, flagger.ID, "still a duplicate")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Removed hazards cannot be flagged.
	removed := createTestHazard(t, db, reporter.ID, hazardOpts{status: models.HazardStatusRemoved})
	_, err = svc.Flag(removed.ID, flagger.ID, "spam")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestListFilters(t *testing.T) {
	svc, _, db := newHazardService(t)
	reporter := createTestUser(t, db, models.RoleUser, 100)

	createTestHazard(t, db, reporter.ID, hazardOpts{})
	createTestHazard(t, db, reporter.ID, hazardOpts{status: models.HazardStatusFlagged})
	createTestHazard(t, db, reporter.ID, hazardOpts{})

	hazards, total, err := svc.List(models.HazardStatusApproved, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, hazards, 2)

	_, total, err = svc.List("", "water", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = svc.List("", "terrain", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}
