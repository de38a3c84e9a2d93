package services

import (
	"math"
	"regexp"
	"sync"

	"github.com/trailsense/hazardwatch-backend/internal/config"
)

// Screening actions, in decreasing severity of outcome.
const (
	ScreeningReject  = "reject"
	ScreeningApprove = "approve"
	ScreeningFlag    = "flag"
	ScreeningQueue   = "queue"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

// SubmissionInput is the screening view of a hazard submission. Optional
// fields that are nil simply skip their check and contribute no risk.
type SubmissionInput struct {
	Title       string
	Description string
	Category    string
	Latitude    *float64
	Longitude   *float64
	PhotoCount  *int
	PhotoBytes  *int64
}

// RiskAssessment is the content-only half of screening: what the checks
// found, before any trust adjustment.
type RiskAssessment struct {
	RawRisk    float64
	Confidence float64
	Reasons    []string
}

// Decision is the screening outcome handed back to submission intake.
type Decision struct {
	Action              string   `json:"action"`
	Confidence          float64  `json:"confidence"`
	Reasons             []string `json:"reasons"`
	RawRisk             float64  `json:"raw_risk"`
	AdjustedRisk        float64  `json:"adjusted_risk"`
	RiskLevel           string   `json:"risk_level"`
	Priority            string   `json:"priority"`
	EstimatedReviewTime int      `json:"estimated_review_time"` // minutes, hint only
}

// signal is one fired content check: its reason tag, how much risk it
// carries and how much it strengthens overall confidence.
type signal struct {
	reason     string
	severity   float64
	confidence float64
}

// ScreeningService computes a trust-weighted screening decision for a
// submission. It is a pure function of its inputs: no persistence, no side
// effects. Thresholds and bands are injected and reloadable at runtime.
type ScreeningService struct {
	mu  sync.RWMutex
	cfg config.ScreeningConfig

	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
}

func NewScreeningService(cfg config.ScreeningConfig) *ScreeningService {
	s := &ScreeningService{cfg: cfg}
	s.compilePatterns()
	return s
}

func (s *ScreeningService) compilePatterns() {
	s.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		pattern := `(?i)\b` + regexp.QuoteMeta(word) + `\b`
		re, err := regexp.Compile(pattern)
		if err == nil {
			s.bannedWordRegexps = append(s.bannedWordRegexps, re)
		}
	}

	s.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	s.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	s.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	s.repeatedCharPattern = regexp.MustCompile(`(?i)(a{4,}|b{4,}|c{4,}|d{4,}|e{4,}|f{4,}|g{4,}|h{4,}|i{4,}|j{4,}|k{4,}|l{4,}|m{4,}|n{4,}|o{4,}|p{4,}|q{4,}|r{4,}|s{4,}|t{4,}|u{4,}|v{4,}|w{4,}|x{4,}|y{4,}|z{4,}|!{4,}|\?{4,}|\.{4,})`)
	s.allCapsPattern = regexp.MustCompile(`[A-Z]{5,}`)
}

// Config returns the currently effective screening configuration.
func (s *ScreeningService) Config() config.ScreeningConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reload swaps in a new threshold/band table. Used by the settings
// endpoint so operators can retune without a redeploy.
func (s *ScreeningService) Reload(cfg config.ScreeningConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Screen runs the content checks, applies the submitter's trust multiplier
// and walks the decision table.
func (s *ScreeningService) Screen(sub SubmissionInput, trustScore int) Decision {
	return s.Evaluate(s.Assess(sub), trustScore)
}

// Assess runs the independent content checks and combines their severities
// into a raw risk. The combination 1-Π(1-severity) is monotonic: every
// additional fired check raises raw risk, and no single check caps it.
func (s *ScreeningService) Assess(sub SubmissionInput) RiskAssessment {
	signals := s.textSignals(sub.Title + " " + sub.Description)
	signals = append(signals, s.descriptionSignals(sub.Description)...)
	signals = append(signals, imageSignals(sub)...)
	signals = append(signals, locationSignals(sub)...)

	survival := 1.0
	confidence := 0.5
	reasons := make([]string, 0, len(signals))
	for _, sig := range signals {
		survival *= 1 - sig.severity
		confidence += sig.confidence
		reasons = append(reasons, sig.reason)
	}

	return RiskAssessment{
		RawRisk:    clamp01(1 - survival),
		Confidence: math.Min(confidence, 0.98),
		Reasons:    reasons,
	}
}

// Evaluate applies the trust multiplier and walks the ordered decision
// table. The order is load-bearing: rejection is checked first so that very
// high-confidence dangerous content is rejected even when the submitter's
// trust would otherwise qualify for auto-approval. The reject predicate
// reads the unadjusted risk, so trust never bypasses rejection.
func (s *ScreeningService) Evaluate(a RiskAssessment, trustScore int) Decision {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	adjusted := clamp01(a.RawRisk * cfg.Multiplier(trustScore))

	rules := []struct {
		match  func() bool
		action string
	}{
		{func() bool {
			return a.Confidence >= cfg.AutoRejectConfidence && a.RawRisk >= cfg.AutoRejectRisk
		}, ScreeningReject},
		{func() bool {
			return trustScore >= cfg.AutoApproveTrust && adjusted < cfg.AutoApproveRisk
		}, ScreeningApprove},
		{func() bool { return adjusted >= cfg.FlagRisk }, ScreeningFlag},
	}

	action := ScreeningQueue
	for _, r := range rules {
		if r.match() {
			action = r.action
			break
		}
	}

	level := riskLevel(adjusted)
	priority := reviewPriority(level, action)

	return Decision{
		Action:              action,
		Confidence:          a.Confidence,
		Reasons:             a.Reasons,
		RawRisk:             a.RawRisk,
		AdjustedRisk:        adjusted,
		RiskLevel:           level,
		Priority:            priority,
		EstimatedReviewTime: estimatedReviewMinutes(priority),
	}
}

func (s *ScreeningService) textSignals(text string) []signal {
	var signals []signal
	if text == "" {
		return signals
	}
	for _, re := range s.bannedWordRegexps {
		if re.MatchString(text) {
			signals = append(signals, signal{"inappropriate_language", 0.55, 0.25})
			break
		}
	}
	if s.urlPattern.MatchString(text) {
		signals = append(signals, signal{"link_in_description", 0.25, 0.10})
	}
	if s.emailPattern.MatchString(text) || s.phonePattern.MatchString(text) {
		signals = append(signals, signal{"contact_info", 0.20, 0.10})
	}
	if s.repeatedCharPattern.MatchString(text) {
		signals = append(signals, signal{"spam_pattern", 0.35, 0.15})
	}
	if len(s.allCapsPattern.FindAllString(text, -1)) > 2 {
		signals = append(signals, signal{"excessive_caps", 0.15, 0.05})
	}
	return signals
}

func (s *ScreeningService) descriptionSignals(description string) []signal {
	if description != "" && len(description) < 10 {
		return []signal{{"description_too_short", 0.10, 0.05}}
	}
	return nil
}

// imageSignals checks photo payload plausibility. Absent photo data skips
// the check entirely.
func imageSignals(sub SubmissionInput) []signal {
	var signals []signal
	if sub.PhotoCount != nil && *sub.PhotoCount > 12 {
		signals = append(signals, signal{"excessive_photos", 0.25, 0.10})
	}
	if sub.PhotoBytes != nil && sub.PhotoCount != nil && *sub.PhotoCount > 0 {
		if avg := *sub.PhotoBytes / int64(*sub.PhotoCount); avg > 0 && avg < 1024 {
			signals = append(signals, signal{"suspect_photo_payload", 0.20, 0.10})
		}
	}
	return signals
}

// locationSignals checks coordinate plausibility. Absent coordinates skip
// the check entirely.
func locationSignals(sub SubmissionInput) []signal {
	if sub.Latitude == nil || sub.Longitude == nil {
		return nil
	}
	lat, lng := *sub.Latitude, *sub.Longitude
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return []signal{{"invalid_coordinates", 0.50, 0.20}}
	}
	if lat == 0 && lng == 0 {
		return []signal{{"implausible_location", 0.45, 0.15}}
	}
	return nil
}

func riskLevel(adjusted float64) string {
	switch {
	case adjusted < 0.3:
		return RiskLow
	case adjusted < 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// reviewPriority maps risk level to queue priority. Flagged submissions
// always land at high priority or above.
func reviewPriority(level, action string) string {
	var priority string
	switch level {
	case RiskHigh:
		priority = "urgent"
	case RiskMedium:
		priority = "high"
	default:
		priority = "medium"
	}
	if action == ScreeningFlag && priority == "medium" {
		priority = "high"
	}
	return priority
}

func estimatedReviewMinutes(priority string) int {
	switch priority {
	case "urgent":
		return 15
	case "high":
		return 60
	case "medium":
		return 240
	default:
		return 480
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
