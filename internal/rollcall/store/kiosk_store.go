package store

import (
	"context"
	"time"
)

type KioskRecord struct {
	KioskID         string
	Known           bool
	LastSeen        time.Time
	AppVersion      string
	ReaderConnected *bool
	CameraReady     *bool
}

type KioskStore interface {
	IsKnown(ctx context.Context, kioskID string) (bool, error)
	MarkSeen(ctx context.Context, kioskID string, known bool, t time.Time) error
	RecordHeartbeat(ctx context.Context, rec KioskRecord) error
	ListKiosks(ctx context.Context) ([]KioskRecord, error)
}
