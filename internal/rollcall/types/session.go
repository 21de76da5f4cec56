package types

import "time"

const (
	SourceQR        = "qr"
	SourceBiometric = "biometric"
	SourceAdmin     = "admin"
)

type PunchSession struct {
	ID         string     `json:"id"`
	IdentityID string     `json:"user_id"`
	Date       string     `json:"date"`
	PunchIn    time.Time  `json:"punch_in"`
	PunchOut   *time.Time `json:"punch_out"`
	Source     string     `json:"source"`
}

func (s PunchSession) Open() bool { return s.PunchOut == nil }

// Duration is the closed length of the session, or the time elapsed until now
// while it is still open.
func (s PunchSession) Duration(now time.Time) time.Duration {
	end := now
	if s.PunchOut != nil {
		end = *s.PunchOut
	}
	if end.Before(s.PunchIn) {
		return 0
	}
	return end.Sub(s.PunchIn)
}

type HistoryRecord struct {
	ID         string     `json:"id"`
	Date       string     `json:"date"`
	PunchIn    time.Time  `json:"punch_in"`
	PunchOut   *time.Time `json:"punch_out"`
	TotalHours *float64   `json:"total_hours"`
}

type LiveRecord struct {
	UserID          string     `json:"user_id"`
	CouncilID       string     `json:"council_id"`
	Name            string     `json:"name"`
	Committee       string     `json:"committee"`
	Status          string     `json:"status"`
	PunchIn         time.Time  `json:"punch_in"`
	PunchOut        *time.Time `json:"punch_out,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Source          string     `json:"source"`
}

type LiveResponse struct {
	Success bool         `json:"success"`
	Date    string       `json:"date"`
	Records []LiveRecord `json:"records"`
}
