package types

import "time"

type Identity struct {
	ID            string     `json:"user_id"`
	CouncilID     string     `json:"council_id"`
	Name          string     `json:"name"`
	Committee     string     `json:"committee_name,omitempty"`
	Role          string     `json:"role"`
	QRBlocked     bool       `json:"qr_blocked"`
	QRBlockReason string     `json:"qr_block_reason,omitempty"`
	QRBlockedAt   *time.Time `json:"qr_blocked_at,omitempty"`
}

func (i Identity) Summary() MemberSummary {
	return MemberSummary{
		CouncilID: i.CouncilID,
		Name:      i.Name,
		Committee: i.Committee,
	}
}
