package store

import (
	"context"
	"time"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// SessionStore owns punch_sessions.  Rows are never deleted.
type SessionStore interface {
	// OpenSession returns the identity's open session, or nil when there is
	// none.  No date filter is applied.
	OpenSession(ctx context.Context, identityID string) (*types.PunchSession, error)

	// InsertOpenSession inserts sess (PunchOut must be nil) only if the
	// identity has no open session; otherwise ErrAlreadyOpen.
	InsertOpenSession(ctx context.Context, sess types.PunchSession) error

	// CloseSession sets PunchOut on an open session.  ErrNotFound,
	// ErrNotOpen if it was already closed, ErrInvalidPunchOut if at is not
	// strictly after PunchIn.
	CloseSession(ctx context.Context, sessionID string, at time.Time) (types.PunchSession, error)

	// SessionsBetween returns sessions whose PunchIn is in [from, to),
	// ordered by PunchIn.
	SessionsBetween(ctx context.Context, from, to time.Time) ([]types.PunchSession, error)

	// OpenSessions returns every open session regardless of date, ordered
	// by PunchIn.
	OpenSessions(ctx context.Context) ([]types.PunchSession, error)

	// SessionsForIdentity returns the identity's sessions, newest first.
	SessionsForIdentity(ctx context.Context, identityID string) ([]types.PunchSession, error)
}
