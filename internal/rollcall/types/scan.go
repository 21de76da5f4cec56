package types

type Action string

const (
	ActionPunchIn  Action = "punch_in"
	ActionPunchOut Action = "punch_out"
	ActionBlocked  Action = "blocked"
)

type ScanQRRequest struct {
	QR            string `json:"qr"`
	KioskDeviceID string `json:"kioskDeviceId,omitempty"`
}

type ScanBiometricRequest struct {
	Template      string `json:"template"` // base64
	Quality       int    `json:"quality"`
	KioskDeviceID string `json:"kioskDeviceId,omitempty"`
}

type MemberSummary struct {
	CouncilID string `json:"councilId"`
	Name      string `json:"name"`
	Committee string `json:"committee"`
}

type ScanResponse struct {
	Success          bool           `json:"success"`
	Action           Action         `json:"action,omitempty"`
	Code             string         `json:"code,omitempty"`
	Message          string         `json:"message"`
	Member           *MemberSummary `json:"member,omitempty"`
	RemainingMinutes int            `json:"remainingMinutes,omitempty"`
	DurationMinutes  *int           `json:"durationMinutes,omitempty"`
	Score            *int           `json:"score,omitempty"`
	Timestamp        string         `json:"timestamp,omitempty"`
	ServerTime       string         `json:"serverTime"`
}
