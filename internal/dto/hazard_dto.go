package dto

import "time"

type CreateHazardRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	PhotoCount     *int       `json:"photo_count,omitempty"`
	PhotoBytes     *int64     `json:"photo_bytes,omitempty"`
	ExpirationType string     `json:"expiration_type"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	SeasonalMonths []int      `json:"seasonal_months,omitempty"`
}

type FlagHazardRequest struct {
	Reason string `json:"reason"`
}

type ExtendHazardRequest struct {
	NewExpiresAt time.Time `json:"new_expires_at"`
	Reason       string    `json:"reason,omitempty"`
}

type ResolutionReportRequest struct {
	Note        string `json:"note"`
	EvidenceURL string `json:"evidence_url,omitempty"`
}

type ConfirmationRequest struct {
	Type string `json:"type"` // confirmed, disputed
	Note string `json:"note,omitempty"`
}
