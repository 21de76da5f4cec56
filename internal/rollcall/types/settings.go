package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Settings struct {
	QREnabled          bool      `json:"qr_enabled"`
	QRExpirySeconds    int       `json:"qr_expiry_seconds" validate:"min=5,max=120"`
	TimeWindowEnabled  bool      `json:"time_window_enabled"`
	StartTime          string    `json:"start_time" validate:"omitempty,timeofday"`
	EndTime            string    `json:"end_time" validate:"omitempty,timeofday"`
	PunchoutMinMinutes int       `json:"punchout_min_minutes" validate:"min=0,max=240"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

// DefaultSettings matches the values a fresh database is seeded with.
func DefaultSettings() Settings {
	return Settings{
		QREnabled:          true,
		QRExpirySeconds:    15,
		TimeWindowEnabled:  false,
		StartTime:          "09:00",
		EndTime:            "18:00",
		PunchoutMinMinutes: 30,
	}
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("time of day %q: want HH:MM or HH:MM:SS", s)
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}

	var d time.Duration
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("time of day %q: field %d must be two digits", s, i+1)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("time of day %q: field %d out of range", s, i+1)
		}
		d += time.Duration(n) * units[i]
	}
	return d, nil
}
