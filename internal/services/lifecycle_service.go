package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trailsense/hazardwatch-backend/internal/apperr"
	"github.com/trailsense/hazardwatch-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Derived lifecycle statuses. Never stored; recomputed on every read from
// the hazard's timestamps, counters and vote set.
const (
	LifecycleActive            = "active"
	LifecycleExpiringSoon      = "expiring_soon"
	LifecycleExpired           = "expired"
	LifecycleDormant           = "dormant"
	LifecyclePendingResolution = "pending_resolution"
	LifecycleResolved          = "resolved"
)

// ExpiringSoonWindow is how close to expires_at a hazard starts reporting
// expiring_soon.
const ExpiringSoonWindow = 24 * time.Hour

// ResolutionQuorum is the minimum confirming votes before a
// user_resolvable hazard moves to pending_resolution. Confirmations must
// also strictly outnumber disputes.
const ResolutionQuorum = 3

const (
	maxResolutionNoteLen   = 1000
	maxConfirmationNoteLen = 500
)

// DeriveStatus computes the lifecycle status of a hazard at the given
// instant. resolved_at wins over everything, including past expiry and
// out-of-season months.
func DeriveStatus(h *models.Hazard, confirmed, disputed int, now time.Time) string {
	if h.ResolvedAt != nil {
		return LifecycleResolved
	}

	switch h.ExpirationType {
	case models.ExpirationAutoExpire:
		if h.ExpiresAt == nil {
			return LifecycleActive
		}
		if now.After(*h.ExpiresAt) {
			return LifecycleExpired
		}
		if h.ExpiresAt.Sub(now) <= ExpiringSoonWindow {
			return LifecycleExpiringSoon
		}
		return LifecycleActive

	case models.ExpirationSeasonal:
		month := int(now.Month())
		for _, m := range h.SeasonalMonths {
			if m == month {
				return LifecycleActive
			}
		}
		return LifecycleDormant

	case models.ExpirationUserResolvable:
		if confirmed >= ResolutionQuorum && confirmed > disputed {
			return LifecyclePendingResolution
		}
		return LifecycleActive

	default: // permanent
		return LifecycleActive
	}
}

// LifecycleService governs a hazard's lifecycle after it goes live:
// extensions, resolution reports, community votes and the audit trail.
type LifecycleService struct {
	db    *gorm.DB
	trust TrustScoreProvider
	// now is swappable for tests.
	now func() time.Time
}

func NewLifecycleService(db *gorm.DB, trust TrustScoreProvider) *LifecycleService {
	return &LifecycleService{db: db, trust: trust, now: time.Now}
}

// Extend pushes a hazard's expiry out. Only the hazard's owner or a
// moderator may extend, only non-resolved hazards of an expirable type,
// and only to a strictly future timestamp.
func (s *LifecycleService) Extend(hazardID uuid.UUID, newExpiresAt time.Time, actorID uuid.UUID, reason string) (*models.Hazard, error) {
	hazard, err := s.getHazard(hazardID)
	if err != nil {
		return nil, err
	}
	if !hazard.Expirable() {
		return nil, apperr.Validation("hazards of type %q cannot be extended", hazard.ExpirationType)
	}
	if hazard.ResolvedAt != nil {
		return nil, apperr.Conflict("hazard %s is already resolved", hazardID)
	}
	if err := s.requireOwnerOrModerator(hazard, actorID); err != nil {
		return nil, err
	}
	now := s.now()
	if !newExpiresAt.After(now) {
		return nil, apperr.Validation("new expiry must be in the future")
	}

	prev := expirySnapshot(hazard)

	updates := map[string]any{
		"expires_at":      newExpiresAt,
		"extended_count":  gorm.Expr("extended_count + 1"),
		"expiry_notified": false,
	}
	if err := s.db.Model(&models.Hazard{}).Where("id = ?", hazardID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("extend hazard: %w", err)
	}

	updated, err := s.getHazard(hazardID)
	if err != nil {
		return nil, err
	}

	deltaHours := newExpiresAt.Sub(now).Hours()
	if hazard.ExpiresAt != nil {
		deltaHours = newExpiresAt.Sub(*hazard.ExpiresAt).Hours()
	}
	auditReason := reason
	if auditReason == "" {
		auditReason = fmt.Sprintf("extended by %.1f hours", deltaHours)
	} else {
		auditReason = fmt.Sprintf("%s (%.1f hours)", reason, deltaHours)
	}
	s.audit(hazardID, models.AuditExpirationExtended, actorID, prev, expirySnapshot(updated), auditReason)

	return updated, nil
}

// SubmitResolutionReport opens the community-resolution flow for a
// user_resolvable hazard. One active report per hazard; later users vote
// on it instead of filing their own.
func (s *LifecycleService) SubmitResolutionReport(hazardID, actorID uuid.UUID, note, evidenceURL string) (*models.HazardResolutionReport, error) {
	hazard, err := s.getHazard(hazardID)
	if err != nil {
		return nil, err
	}
	if hazard.ExpirationType != models.ExpirationUserResolvable {
		return nil, apperr.Validation("hazards of type %q are not community-resolvable", hazard.ExpirationType)
	}
	if hazard.ResolvedAt != nil {
		return nil, apperr.Conflict("hazard %s is already resolved", hazardID)
	}

	note = strings.TrimSpace(note)
	if note == "" {
		return nil, apperr.Validation("resolution note is required")
	}
	if len(note) > maxResolutionNoteLen {
		return nil, apperr.Validation("resolution note exceeds %d characters", maxResolutionNoteLen)
	}

	trustScore, err := s.trust.Score(actorID)
	if err != nil {
		return nil, err
	}

	report := &models.HazardResolutionReport{
		ID:                 uuid.New(),
		HazardID:           hazardID,
		ReportedBy:         actorID,
		ResolutionNote:     note,
		EvidenceURL:        evidenceURL,
		TrustScoreAtReport: trustScore,
	}

	// The unique index on hazard_id backs this check; the transaction keeps
	// check and insert atomic against concurrent submitters.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.HazardResolutionReport
		err := tx.Where("hazard_id = ?", hazardID).First(&existing).Error
		if err == nil {
			return apperr.Conflict("resolution report %s already exists for this hazard", existing.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing report: %w", err)
		}
		return tx.Create(report).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit(hazardID, models.AuditResolutionReported, actorID, nil,
		map[string]any{"report_id": report.ID, "trust_score_at_report": trustScore},
		"resolution report submitted")
	return report, nil
}

// UpdateResolutionReport edits an open report. Author-only; rejected once
// the hazard is resolved.
func (s *LifecycleService) UpdateResolutionReport(hazardID, actorID uuid.UUID, note, evidenceURL string) (*models.HazardResolutionReport, error) {
	hazard, err := s.getHazard(hazardID)
	if err != nil {
		return nil, err
	}
	if hazard.ResolvedAt != nil {
		return nil, apperr.Conflict("hazard %s is already resolved", hazardID)
	}

	report, err := s.getReport(hazardID)
	if err != nil {
		return nil, err
	}
	if report.ReportedBy != actorID {
		return nil, apperr.Forbidden("only the report author may update it")
	}

	note = strings.TrimSpace(note)
	if note == "" {
		return nil, apperr.Validation("resolution note is required")
	}
	if len(note) > maxResolutionNoteLen {
		return nil, apperr.Validation("resolution note exceeds %d characters", maxResolutionNoteLen)
	}

	prev := map[string]any{"resolution_note": report.ResolutionNote, "evidence_url": report.EvidenceURL}
	updates := map[string]any{"resolution_note": note, "evidence_url": evidenceURL}
	if err := s.db.Model(report).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update resolution report: %w", err)
	}

	s.audit(hazardID, models.AuditResolutionUpdated, actorID, prev, updates, "resolution report updated")
	return s.getReport(hazardID)
}

// VoteCounts is the confirmation tally for a hazard's resolution report.
type VoteCounts struct {
	Confirmed int `json:"confirmed"`
	Disputed  int `json:"disputed"`
}

// ConfirmOrDispute records one user's vote on a pending resolution report.
// The report author and the hazard's own reporter may not vote. A repeat
// vote of the same type is a conflict; a vote of the other type updates
// the row in place.
func (s *LifecycleService) ConfirmOrDispute(hazardID, actorID uuid.UUID, confirmationType, note string) (*VoteCounts, error) {
	if confirmationType != models.ConfirmationConfirmed && confirmationType != models.ConfirmationDisputed {
		return nil, apperr.Validation("invalid confirmation type %q", confirmationType)
	}
	if len(note) > maxConfirmationNoteLen {
		return nil, apperr.Validation("note exceeds %d characters", maxConfirmationNoteLen)
	}

	hazard, err := s.getHazard(hazardID)
	if err != nil {
		return nil, err
	}
	if hazard.ResolvedAt != nil {
		return nil, apperr.Conflict("hazard %s is already resolved", hazardID)
	}

	report, err := s.getReport(hazardID)
	if err != nil {
		return nil, err
	}
	if report.ReportedBy == actorID {
		return nil, apperr.Forbidden("the report author may not vote on their own report")
	}
	if hazard.ReporterID == actorID {
		return nil, apperr.Forbidden("the hazard reporter may not vote on its resolution")
	}

	// The unique (hazard_id, user_id) index enforces one vote per user at
	// write time; the transaction keeps the check and write atomic. Audit
	// entries go in after commit so a best-effort audit failure can never
	// roll the vote back.
	var auditAction string
	var auditPrev map[string]any
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.HazardResolutionConfirmation
		err := tx.Where("hazard_id = ? AND user_id = ?", hazardID, actorID).First(&existing).Error
		switch {
		case err == nil:
			if existing.ConfirmationType == confirmationType {
				return apperr.Conflict("you have already %s this resolution", confirmationType)
			}
			auditAction = models.AuditConfirmationChanged
			auditPrev = map[string]any{"confirmation_type": existing.ConfirmationType}
			if err := tx.Model(&existing).Updates(map[string]any{
				"confirmation_type": confirmationType,
				"note":              note,
			}).Error; err != nil {
				return fmt.Errorf("change vote: %w", err)
			}
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := &models.HazardResolutionConfirmation{
				ID:               uuid.New(),
				HazardID:         hazardID,
				UserID:           actorID,
				ConfirmationType: confirmationType,
				Note:             note,
			}
			if err := tx.Create(vote).Error; err != nil {
				return fmt.Errorf("record vote: %w", err)
			}
			auditAction = models.AuditResolutionConfirmed
			if confirmationType == models.ConfirmationDisputed {
				auditAction = models.AuditResolutionDisputed
			}
			return nil

		default:
			return fmt.Errorf("check existing vote: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	s.audit(hazardID, auditAction, actorID, auditPrev,
		map[string]any{"confirmation_type": confirmationType}, "vote recorded")

	return s.countVotes(hazardID)
}

// WithdrawConfirmation removes the actor's vote. Withdrawing a vote that
// does not exist is a not-found error, not a silent success.
func (s *LifecycleService) WithdrawConfirmation(hazardID, actorID uuid.UUID) (*VoteCounts, error) {
	var existing models.HazardResolutionConfirmation
	err := s.db.Where("hazard_id = ? AND user_id = ?", hazardID, actorID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no confirmation to withdraw")
	}
	if err != nil {
		return nil, fmt.Errorf("load confirmation: %w", err)
	}

	if err := s.db.Delete(&existing).Error; err != nil {
		return nil, fmt.Errorf("withdraw confirmation: %w", err)
	}

	s.audit(hazardID, models.AuditConfirmationWithdrawn, actorID,
		map[string]any{"confirmation_type": existing.ConfirmationType}, nil, "vote withdrawn")
	return s.countVotes(hazardID)
}

// FinalizeResolution is the manual moderator step that closes a
// user_resolvable hazard once the community quorum holds. Quorum alone
// never sets resolved_at.
func (s *LifecycleService) FinalizeResolution(hazardID, moderatorID uuid.UUID) (*models.Hazard, error) {
	if err := s.requireModerator(moderatorID); err != nil {
		return nil, err
	}

	hazard, err := s.getHazard(hazardID)
	if err != nil {
		return nil, err
	}
	if hazard.ResolvedAt != nil {
		return nil, apperr.Conflict("hazard %s is already resolved", hazardID)
	}

	counts, err := s.countVotes(hazardID)
	if err != nil {
		return nil, err
	}
	status := DeriveStatus(hazard, counts.Confirmed, counts.Disputed, s.now())
	if status != LifecyclePendingResolution {
		return nil, apperr.Conflict("hazard %s is %s, not pending resolution", hazardID, status)
	}

	now := s.now().UTC()
	if err := s.db.Model(&models.Hazard{}).Where("id = ?", hazardID).
		Update("resolved_at", now).Error; err != nil {
		return nil, fmt.Errorf("finalize resolution: %w", err)
	}

	s.audit(hazardID, models.AuditResolutionFinalized, moderatorID,
		map[string]any{"status": status},
		map[string]any{"status": LifecycleResolved, "resolved_at": now},
		fmt.Sprintf("finalized with %d confirmations, %d disputes", counts.Confirmed, counts.Disputed))

	updated, err := s.getHazard(hazardID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// LifecycleStatus is the read-side view a hazard detail page renders.
type LifecycleStatus struct {
	HazardID      uuid.UUID `json:"hazard_id"`
	Status        string    `json:"status"`
	TimeRemaining *int64    `json:"time_remaining,omitempty"` // seconds
	ExtendedCount int       `json:"extended_count"`

	ResolutionReport *models.HazardResolutionReport `json:"resolution_report,omitempty"`
	Votes            *VoteCounts                    `json:"votes,omitempty"`

	CanExtend  bool `json:"can_extend"`
	CanResolve bool `json:"can_resolve"`
}

// GetStatus derives the hazard's current lifecycle status together with
// the actor-scoped capability flags. actorID may be nil for anonymous
// reads; both flags are then false.
func (s *LifecycleService) GetStatus(hazardID uuid.UUID, actorID *uuid.UUID) (*LifecycleStatus, error) {
	hazard, err := s.getHazard(hazardID)
	if err != nil {
		return nil, err
	}

	counts, err := s.countVotes(hazardID)
	if err != nil {
		return nil, err
	}

	report, err := s.getReport(hazardID)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	now := s.now()
	status := &LifecycleStatus{
		HazardID:      hazardID,
		Status:        DeriveStatus(hazard, counts.Confirmed, counts.Disputed, now),
		ExtendedCount: hazard.ExtendedCount,
	}

	if hazard.ExpirationType == models.ExpirationAutoExpire && hazard.ExpiresAt != nil {
		remaining := int64(hazard.ExpiresAt.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		status.TimeRemaining = &remaining
	}

	if report != nil {
		status.ResolutionReport = report
		status.Votes = counts
	}

	if actorID != nil {
		notResolved := hazard.ResolvedAt == nil
		isOwner := hazard.ReporterID == *actorID
		isMod := s.isModerator(*actorID)
		status.CanExtend = notResolved && hazard.Expirable() && (isOwner || isMod)
		status.CanResolve = notResolved &&
			hazard.ExpirationType == models.ExpirationUserResolvable &&
			report == nil
	}

	return status, nil
}

// AuditTrail returns the append-only history for a hazard, newest first.
func (s *LifecycleService) AuditTrail(hazardID uuid.UUID, limit int) ([]models.ExpirationAuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.ExpirationAuditLog
	err := s.db.Where("hazard_id = ?", hazardID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}
	return entries, nil
}

// audit appends one history entry. Best-effort: a failed audit write is
// surfaced as a warning and never rolls back the primary mutation.
func (s *LifecycleService) audit(hazardID uuid.UUID, action string, performedBy uuid.UUID, prev, next map[string]any, reason string) {
	entry := models.ExpirationAuditLog{
		ID:          uuid.New(),
		HazardID:    hazardID,
		Action:      action,
		PerformedBy: performedBy,
		Reason:      reason,
	}
	if prev != nil {
		if b, err := json.Marshal(prev); err == nil {
			entry.PreviousState = datatypes.JSON(b)
		}
	}
	if next != nil {
		if b, err := json.Marshal(next); err == nil {
			entry.NewState = datatypes.JSON(b)
		}
	}
	if err := s.db.Create(&entry).Error; err != nil {
		slog.Warn("audit log write failed",
			"hazard_id", hazardID, "action", action, "error", err)
	}
}

func (s *LifecycleService) countVotes(hazardID uuid.UUID) (*VoteCounts, error) {
	type row struct {
		ConfirmationType string
		Count            int64
	}
	var rows []row
	err := s.db.Model(&models.HazardResolutionConfirmation{}).
		Select("confirmation_type, COUNT(*) as count").
		Where("hazard_id = ?", hazardID).
		Group("confirmation_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	counts := &VoteCounts{}
	for _, r := range rows {
		switch r.ConfirmationType {
		case models.ConfirmationConfirmed:
			counts.Confirmed = int(r.Count)
		case models.ConfirmationDisputed:
			counts.Disputed = int(r.Count)
		}
	}
	return counts, nil
}

func (s *LifecycleService) getHazard(hazardID uuid.UUID) (*models.Hazard, error) {
	var hazard models.Hazard
	if err := s.db.First(&hazard, "id = ?", hazardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("hazard %s not found", hazardID)
		}
		return nil, fmt.Errorf("load hazard: %w", err)
	}
	return &hazard, nil
}

func (s *LifecycleService) getReport(hazardID uuid.UUID) (*models.HazardResolutionReport, error) {
	var report models.HazardResolutionReport
	if err := s.db.Where("hazard_id = ?", hazardID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no resolution report for hazard %s", hazardID)
		}
		return nil, fmt.Errorf("load resolution report: %w", err)
	}
	return &report, nil
}

func (s *LifecycleService) requireOwnerOrModerator(hazard *models.Hazard, actorID uuid.UUID) error {
	if hazard.ReporterID == actorID || s.isModerator(actorID) {
		return nil
	}
	return apperr.Forbidden("only the hazard owner or a moderator may do this")
}

func (s *LifecycleService) requireModerator(actorID uuid.UUID) error {
	if s.isModerator(actorID) {
		return nil
	}
	return apperr.Forbidden("moderator role required")
}

func (s *LifecycleService) isModerator(actorID uuid.UUID) bool {
	var user models.User
	if err := s.db.Select("role").First(&user, "id = ?", actorID).Error; err != nil {
		return false
	}
	return user.IsModerator()
}

func expirySnapshot(h *models.Hazard) map[string]any {
	return map[string]any{
		"expires_at":     h.ExpiresAt,
		"extended_count": h.ExtendedCount,
	}
}
