package service

import (
	"context"
	"fmt"
	"math"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

const (
	StatusPunchedIn = "punched_in"
	StatusCompleted = "completed"
)

// AttendanceView answers the read-only dashboard and member queries.
type AttendanceView struct {
	ledger     *PunchLedger
	identities store.IdentityStore
	clock      Clock
}

func NewAttendanceView(ledger *PunchLedger, identities store.IdentityStore, clock Clock) *AttendanceView {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AttendanceView{ledger: ledger, identities: identities, clock: clock}
}

// Today lists today's sessions and any still open from earlier days, open
// ones with their duration so far.
func (v *AttendanceView) Today(ctx context.Context) (types.LiveResponse, error) {
	now := v.clock.Now()
	sessions, err := v.ledger.LiveOn(ctx, now)
	if err != nil {
		return types.LiveResponse{}, err
	}

	idents, err := v.identities.ListIdentities(ctx)
	if err != nil {
		return types.LiveResponse{}, fmt.Errorf("live attendance: %w", err)
	}
	byID := make(map[string]types.Identity, len(idents))
	for _, ident := range idents {
		byID[ident.ID] = ident
	}

	records := make([]types.LiveRecord, 0, len(sessions))
	for _, sess := range sessions {
		ident := byID[sess.IdentityID]
		status := StatusCompleted
		if sess.Open() {
			status = StatusPunchedIn
		}
		records = append(records, types.LiveRecord{
			UserID:          sess.IdentityID,
			CouncilID:       ident.CouncilID,
			Name:            ident.Name,
			Committee:       ident.Committee,
			Status:          status,
			PunchIn:         sess.PunchIn,
			PunchOut:        sess.PunchOut,
			DurationMinutes: int(sess.Duration(now).Minutes()),
			Source:          sess.Source,
		})
	}

	return types.LiveResponse{
		Success: true,
		Date:    v.ledger.Day(now),
		Records: records,
	}, nil
}

// History is the member's own record, newest first.  Total hours are only
// reported for closed sessions.
func (v *AttendanceView) History(ctx context.Context, identityID string) ([]types.HistoryRecord, error) {
	sessions, err := v.ledger.History(ctx, identityID)
	if err != nil {
		return nil, err
	}
	out := make([]types.HistoryRecord, 0, len(sessions))
	for _, sess := range sessions {
		rec := types.HistoryRecord{
			ID:       sess.ID,
			Date:     sess.Date,
			PunchIn:  sess.PunchIn,
			PunchOut: sess.PunchOut,
		}
		if sess.PunchOut != nil {
			h := math.Round(sess.PunchOut.Sub(sess.PunchIn).Hours()*100) / 100
			rec.TotalHours = &h
		}
		out = append(out, rec)
	}
	return out, nil
}
