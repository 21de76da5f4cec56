package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// KioskRegistry tracks which kiosks are commissioned and when each was last
// seen.  With enforce set, scans from any other kiosk are refused.
type KioskRegistry struct {
	store   store.KioskStore
	enforce bool
	clock   Clock
	logger  zerolog.Logger
}

func NewKioskRegistry(st store.KioskStore, enforce bool, clock Clock, logger zerolog.Logger) *KioskRegistry {
	return &KioskRegistry{store: st, enforce: enforce, clock: clock, logger: logger}
}

func (r *KioskRegistry) IsKnown(ctx context.Context, kioskID string) (bool, error) {
	kioskID = strings.TrimSpace(kioskID)
	if kioskID == "" {
		return false, nil
	}
	return r.store.IsKnown(ctx, kioskID)
}

func (r *KioskRegistry) NoteSeen(ctx context.Context, kioskID string, known bool) error {
	kioskID = strings.TrimSpace(kioskID)
	if kioskID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, kioskID, known, r.clock.Now().UTC())
}

// Admit is the kiosk gate every scan passes through first.
func (r *KioskRegistry) Admit(ctx context.Context, kioskID string) error {
	known, err := r.IsKnown(ctx, kioskID)
	if err != nil {
		return err
	}
	if err := r.NoteSeen(ctx, kioskID, known); err != nil {
		r.logger.Warn().Err(err).Str("kiosk_id", kioskID).Msg("mark kiosk seen")
	}
	if r.enforce && !known {
		return reject(KindUnknownKiosk)
	}
	return nil
}

func (r *KioskRegistry) Heartbeat(ctx context.Context, req types.KioskHeartbeatRequest) (types.KioskHeartbeatResponse, error) {
	now := r.clock.Now().UTC()
	kioskID := strings.TrimSpace(req.KioskDeviceID)
	if kioskID == "" {
		return types.KioskHeartbeatResponse{}, &Rejection{Kind: KindInvalidEvidence, Reason: "kioskDeviceId is required"}
	}

	known, err := r.IsKnown(ctx, kioskID)
	if err != nil {
		return types.KioskHeartbeatResponse{}, err
	}

	if err := r.store.RecordHeartbeat(ctx, store.KioskRecord{
		KioskID:         kioskID,
		Known:           known,
		LastSeen:        now,
		AppVersion:      strings.TrimSpace(req.AppVersion),
		ReaderConnected: req.ReaderConnected,
		CameraReady:     req.CameraReady,
	}); err != nil {
		return types.KioskHeartbeatResponse{}, err
	}

	return types.KioskHeartbeatResponse{
		OK:            true,
		Known:         known,
		KioskDeviceID: kioskID,
		ServerTime:    now.Format(time.RFC3339Nano),
	}, nil
}

func (r *KioskRegistry) List(ctx context.Context) ([]store.KioskRecord, error) {
	return r.store.ListKiosks(ctx)
}
