package store

import (
	"context"
	"time"
)

// ScanEventRecord captures one resolution, accepted or rejected, for the audit
// log.
type ScanEventRecord struct {
	ID         string
	KioskID    string
	Evidence   string // "qr" | "biometric" | "admin"
	IdentityID string // empty when the evidence never resolved to anyone
	Action     string // empty on rejection
	Rejection  string // rejection kind; empty on success
	Message    string
	Score      *int
	DecidedAt  time.Time
}

// ScanEventStore persists scan decisions as an append-only audit log.
type ScanEventStore interface {
	RecordEvent(ctx context.Context, rec ScanEventRecord) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
