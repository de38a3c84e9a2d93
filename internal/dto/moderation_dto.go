package dto

type ModerationActionRequest struct {
	Action string `json:"action"` // approve, reject, escalate
	Notes  string `json:"notes,omitempty"`
}

type ScreeningSettingRequest struct {
	Value string `json:"value"`
	Type  string `json:"type"` // string, float, int, bands
}
