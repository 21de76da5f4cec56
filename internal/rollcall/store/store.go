package store

import (
	"context"
	"errors"
	"time"
)

// Store sentinels.  Implementations wrap these with context; callers match
// with errors.Is.
var (
	ErrNotFound = errors.New("not found")

	// Token redemption.
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")

	// Punch sessions.
	ErrAlreadyOpen     = errors.New("open session already exists")
	ErrNotOpen         = errors.New("session is not open")
	ErrInvalidPunchOut = errors.New("punch-out must be after punch-in")
)

// Pruner is implemented by stores that hold rows with a retention window.
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
