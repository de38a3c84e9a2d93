package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailsense/hazardwatch-backend/internal/config"
)

func cleanSubmission() SubmissionInput {
	lat, lng := 47.6062, -122.3321
	return SubmissionInput{
		Title:       "Fallen tree across the trail",
		Description: "A large fir came down across the main trail about half a mile past the junction.",
		Category:    "terrain",
		Latitude:    &lat,
		Longitude:   &lng,
	}
}

func TestTrustMultiplierBands(t *testing.T) {
	cfg := testScreeningConfig()

	cases := []struct {
		trust int
		want  float64
	}{
		{500, 0.3},
		{900, 0.3},
		{250, 0.5},
		{200, 0.5},
		{75, 0.8},
		{50, 0.8},
		{10, 1.0},
		{0, 1.0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cfg.Multiplier(tc.trust), "trust %d", tc.trust)
	}
}

func TestAssessCleanSubmission(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	a := svc.Assess(cleanSubmission())
	assert.Zero(t, a.RawRisk)
	assert.Empty(t, a.Reasons)
	assert.Equal(t, 0.5, a.Confidence)
}

func TestAssessSignals(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	t.Run("banned word", func(t *testing.T) {
		sub := cleanSubmission()
		sub.Description = "this fucking trail is blocked again"
		a := svc.Assess(sub)
		assert.Contains(t, a.Reasons, "inappropriate_language")
		assert.Greater(t, a.RawRisk, 0.5)
	})

	t.Run("link and contact info", func(t *testing.T) {
		sub := cleanSubmission()
		sub.Description = "see photos at https://example.com/pics or mail me at someone@example.com"
		a := svc.Assess(sub)
		assert.Contains(t, a.Reasons, "link_in_description")
		assert.Contains(t, a.Reasons, "contact_info")
	})

	t.Run("short description", func(t *testing.T) {
		sub := cleanSubmission()
		sub.Description = "bad"
		a := svc.Assess(sub)
		assert.Contains(t, a.Reasons, "description_too_short")
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		sub := cleanSubmission()
		lat := 123.0
		sub.Latitude = &lat
		a := svc.Assess(sub)
		assert.Contains(t, a.Reasons, "invalid_coordinates")
	})

	t.Run("null island", func(t *testing.T) {
		sub := cleanSubmission()
		zero := 0.0
		sub.Latitude = &zero
		sub.Longitude = &zero
		a := svc.Assess(sub)
		assert.Contains(t, a.Reasons, "implausible_location")
	})

	t.Run("missing optional fields skip their checks", func(t *testing.T) {
		a := svc.Assess(SubmissionInput{
			Title:       "Wasp nest near the viewpoint",
			Description: "Active wasp nest hanging over the bench at the north viewpoint.",
		})
		assert.Empty(t, a.Reasons)
		assert.Zero(t, a.RawRisk)
	})

	t.Run("excessive photos", func(t *testing.T) {
		sub := cleanSubmission()
		count := 20
		sub.PhotoCount = &count
		a := svc.Assess(sub)
		assert.Contains(t, a.Reasons, "excessive_photos")
	})
}

// Every additional fired check must raise raw risk.
func TestAssessRiskMonotonic(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	one := cleanSubmission()
	one.Description = "spam spam spaaaaam"
	a1 := svc.Assess(one)

	two := one
	two.Description += " visit https://example.com now"
	a2 := svc.Assess(two)

	assert.Greater(t, a2.RawRisk, a1.RawRisk)
	assert.Less(t, a2.RawRisk, 1.0)
}

func TestEvaluateRejectIgnoresTrust(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	// Trust 900 would adjust 0.95 down to 0.285, but rejection reads the
	// unadjusted risk, so the submission is still rejected.
	a := RiskAssessment{RawRisk: 0.95, Confidence: 0.95, Reasons: []string{"inappropriate_language"}}
	d := svc.Evaluate(a, 900)

	assert.Equal(t, ScreeningReject, d.Action)
	assert.InDelta(t, 0.285, d.AdjustedRisk, 1e-9)
}

func TestEvaluateRejectNeedsBothThresholds(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	// High risk, low confidence: not a rejection.
	d := svc.Evaluate(RiskAssessment{RawRisk: 0.95, Confidence: 0.6}, 0)
	assert.NotEqual(t, ScreeningReject, d.Action)

	// High confidence, risk below threshold: not a rejection.
	d = svc.Evaluate(RiskAssessment{RawRisk: 0.7, Confidence: 0.95}, 0)
	assert.NotEqual(t, ScreeningReject, d.Action)
}

func TestEvaluateAutoApprove(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	// Trust 600, raw 0.65: adjusted 0.195 < 0.2, approved.
	d := svc.Evaluate(RiskAssessment{RawRisk: 0.65, Confidence: 0.6}, 600)
	assert.Equal(t, ScreeningApprove, d.Action)

	// Same content from an untrusted submitter is not approved.
	d = svc.Evaluate(RiskAssessment{RawRisk: 0.65, Confidence: 0.6}, 100)
	assert.Equal(t, ScreeningQueue, d.Action)
}

// The approve rule's risk bound is exclusive: adjusted risk exactly at the
// threshold does not auto-approve.
func TestEvaluateApproveBoundaryExclusive(t *testing.T) {
	cfg := testScreeningConfig()
	cfg.TrustBands = []config.TrustBand{{MinScore: 500, Multiplier: 0.5}}
	svc := NewScreeningService(cfg)

	// 0.4 * 0.5 is exactly 0.2 in float64.
	d := svc.Evaluate(RiskAssessment{RawRisk: 0.4, Confidence: 0.6}, 600)
	assert.Equal(t, ScreeningQueue, d.Action)

	d = svc.Evaluate(RiskAssessment{RawRisk: 0.39, Confidence: 0.6}, 600)
	assert.Equal(t, ScreeningApprove, d.Action)
}

func TestEvaluateFlagAndQueue(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	d := svc.Evaluate(RiskAssessment{RawRisk: 0.65, Confidence: 0.7}, 0)
	assert.Equal(t, ScreeningFlag, d.Action)
	assert.Equal(t, RiskHigh, d.RiskLevel)
	assert.Equal(t, "urgent", d.Priority)
	assert.Equal(t, 15, d.EstimatedReviewTime)

	d = svc.Evaluate(RiskAssessment{RawRisk: 0.35, Confidence: 0.6}, 0)
	assert.Equal(t, ScreeningQueue, d.Action)
	assert.Equal(t, RiskMedium, d.RiskLevel)
	assert.Equal(t, "high", d.Priority)

	d = svc.Evaluate(RiskAssessment{RawRisk: 0.1, Confidence: 0.5}, 0)
	assert.Equal(t, ScreeningQueue, d.Action)
	assert.Equal(t, RiskLow, d.RiskLevel)
	assert.Equal(t, "medium", d.Priority)
}

// Trusted submitters with risky content fall through to queue, never to
// approve.
func TestEvaluateTrustedButRisky(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	d := svc.Evaluate(RiskAssessment{RawRisk: 0.9, Confidence: 0.5}, 900)
	assert.Equal(t, ScreeningQueue, d.Action)
	assert.InDelta(t, 0.27, d.AdjustedRisk, 1e-9)
}

// Reload retunes the thresholds; a flagged low-risk item is floored at high
// priority.
func TestReloadAndFlagPriorityFloor(t *testing.T) {
	cfg := testScreeningConfig()
	svc := NewScreeningService(cfg)

	cfg.FlagRisk = 0.2
	svc.Reload(cfg)
	require.Equal(t, 0.2, svc.Config().FlagRisk)

	d := svc.Evaluate(RiskAssessment{RawRisk: 0.25, Confidence: 0.5}, 0)
	assert.Equal(t, ScreeningFlag, d.Action)
	assert.Equal(t, RiskLow, d.RiskLevel)
	assert.Equal(t, "high", d.Priority)
}

func TestScreenEndToEnd(t *testing.T) {
	svc := NewScreeningService(testScreeningConfig())

	d := svc.Screen(cleanSubmission(), 50)
	assert.Equal(t, ScreeningQueue, d.Action)
	assert.Zero(t, d.RawRisk)

	spam := cleanSubmission()
	spam.Description = "BUY NOW CHEAP GEAR!!!! visit www.spam-site.example NOWWWW CALL 555-123-4567 FREE STUFF"
	d = svc.Screen(spam, 0)
	assert.NotEqual(t, ScreeningApprove, d.Action)
	assert.NotEmpty(t, d.Reasons)
	assert.GreaterOrEqual(t, d.AdjustedRisk, 0.6)
}
