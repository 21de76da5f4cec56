package service

//go:generate mockgen -source=notifier.go -destination=mocks/notifier.go -package=mocks
//go:generate mockgen -source=../store/identity_store.go -destination=mocks/identity_store.go -package=mocks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// Notifier broadcasts committed punches to dashboards.  Publish runs off the
// request path, so a slow sink delays nothing but its own delivery.
type Notifier interface {
	Publish(ctx context.Context, ev types.PunchEvent) error
}

// auditTrail is the side-effect half of every decision: the realtime event
// after a commit and the scan-event row after any outcome.  Neither can
// change a decision that has already been made.
type auditTrail struct {
	notifier Notifier
	events   store.ScanEventStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

const notifyTimeout = 2 * time.Second

func (a auditTrail) publish(ctx context.Context, action types.Action, ident types.Identity, sess types.PunchSession, source, kioskID string, at time.Time) {
	if a.notifier == nil {
		return
	}
	ev := types.PunchEvent{
		Type:       action,
		UserID:     ident.ID,
		CouncilID:  ident.CouncilID,
		Name:       ident.Name,
		Committee:  ident.Committee,
		Source:     source,
		KioskID:    kioskID,
		Attendance: sess,
		Timestamp:  at,
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := a.notifier.Publish(ctx, ev); err != nil {
			a.metrics.IncNotifyFailure()
			a.logger.Warn().Err(err).Str("identity_id", ident.ID).Str("action", string(action)).Msg("punch event not delivered")
		}
	}()
}

func (a auditTrail) record(ctx context.Context, rec store.ScanEventRecord) {
	if a.events == nil {
		return
	}
	if err := a.events.RecordEvent(context.WithoutCancel(ctx), rec); err != nil {
		a.logger.Error().Err(err).Str("evidence", rec.Evidence).Msg("scan event not recorded")
	}
}
