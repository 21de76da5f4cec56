package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// PunchLedger is the only writer of punch sessions.  It does not retry:
// AlreadyOpen and NotOpen tell the caller to re-read state.
type PunchLedger struct {
	sessions store.SessionStore
	loc      *time.Location
	newID    func() string
}

func NewPunchLedger(sessions store.SessionStore, loc *time.Location) *PunchLedger {
	if loc == nil {
		loc = time.Local
	}
	return &PunchLedger{
		sessions: sessions,
		loc:      loc,
		newID:    uuid.NewString,
	}
}

// Location is the timezone calendar days are derived in.
func (l *PunchLedger) Location() *time.Location { return l.loc }

// Day formats t as the calendar day it falls on in the ledger's timezone.
func (l *PunchLedger) Day(t time.Time) string { return t.In(l.loc).Format("2006-01-02") }

// OpenSessionFor returns the identity's open session regardless of the day
// it was opened, or nil.
func (l *PunchLedger) OpenSessionFor(ctx context.Context, identityID string) (*types.PunchSession, error) {
	sess, err := l.sessions.OpenSession(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("open session for %s: %w", identityID, err)
	}
	return sess, nil
}

func (l *PunchLedger) CommitPunchIn(ctx context.Context, identityID string, at time.Time, source string) (types.PunchSession, error) {
	at = at.UTC().Truncate(time.Millisecond)
	sess := types.PunchSession{
		ID:         l.newID(),
		IdentityID: strings.TrimSpace(identityID),
		Date:       l.Day(at),
		PunchIn:    at,
		Source:     source,
	}
	if err := l.sessions.InsertOpenSession(ctx, sess); err != nil {
		if errors.Is(err, store.ErrAlreadyOpen) {
			return types.PunchSession{}, &Rejection{Kind: KindAlreadyOpen, Err: err}
		}
		return types.PunchSession{}, fmt.Errorf("commit punch-in: %w", err)
	}
	return sess, nil
}

func (l *PunchLedger) CommitPunchOut(ctx context.Context, sessionID string, at time.Time) (types.PunchSession, error) {
	at = at.UTC().Truncate(time.Millisecond)
	sess, err := l.sessions.CloseSession(ctx, sessionID, at)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, store.ErrNotOpen):
		return types.PunchSession{}, &Rejection{Kind: KindNotOpen, Err: err}
	case errors.Is(err, store.ErrInvalidPunchOut):
		return types.PunchSession{}, &Rejection{Kind: KindInvalidPunchTime, Err: err}
	default:
		return types.PunchSession{}, fmt.Errorf("commit punch-out: %w", err)
	}
}

// SessionsOn returns every session punched in on day's calendar date.
func (l *PunchLedger) SessionsOn(ctx context.Context, day time.Time) ([]types.PunchSession, error) {
	y, m, d := day.In(l.loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, l.loc)
	to := from.AddDate(0, 0, 1)
	sessions, err := l.sessions.SessionsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sessions on %s: %w", from.Format("2006-01-02"), err)
	}
	return sessions, nil
}

// LiveOn is SessionsOn plus sessions still open from earlier days, which
// carry across midnight until punched out.  Ordered by PunchIn.
func (l *PunchLedger) LiveOn(ctx context.Context, day time.Time) ([]types.PunchSession, error) {
	sessions, err := l.SessionsOn(ctx, day)
	if err != nil {
		return nil, err
	}
	open, err := l.sessions.OpenSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("open sessions: %w", err)
	}

	y, m, d := day.In(l.loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, l.loc)
	var carried []types.PunchSession
	for _, sess := range open {
		if sess.PunchIn.Before(from) {
			carried = append(carried, sess)
		}
	}
	return append(carried, sessions...), nil
}

// History returns the identity's sessions, newest first.
func (l *PunchLedger) History(ctx context.Context, identityID string) ([]types.PunchSession, error) {
	sessions, err := l.sessions.SessionsForIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", identityID, err)
	}
	return sessions, nil
}
