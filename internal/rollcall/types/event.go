package types

import "time"

type PunchEvent struct {
	Type       Action       `json:"type"`
	UserID     string       `json:"userId"`
	CouncilID  string       `json:"councilId"`
	Name       string       `json:"name"`
	Committee  string       `json:"committee,omitempty"`
	Source     string       `json:"source"`
	KioskID    string       `json:"kioskId,omitempty"`
	Attendance PunchSession `json:"attendance"`
	Timestamp  time.Time    `json:"timestamp"`
}
