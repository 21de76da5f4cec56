package types

import "time"

type QrToken struct {
	Nonce      string
	IdentityID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

func (t QrToken) Consumed() bool { return t.ConsumedAt != nil }

// ExpiredAt reports whether now is past the token's expiry.  A token is still
// valid at exactly ExpiresAt.
func (t QrToken) ExpiredAt(now time.Time) bool { return now.After(t.ExpiresAt) }

type QRResponse struct {
	Success    bool   `json:"success"`
	QR         string `json:"qr,omitempty"`
	ExpiresIn  int    `json:"expiresIn,omitempty"`
	Blocked    bool   `json:"blocked,omitempty"`
	Message    string `json:"message,omitempty"`
	ServerTime string `json:"serverTime"`
}
