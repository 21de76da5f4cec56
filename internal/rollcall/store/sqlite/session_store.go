package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/civicdesk/rollcall/internal/db"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type SessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSessionStore(db *sql.DB, writer *dbpkg.Worker) *SessionStore {
	return &SessionStore{db: db, writer: writer}
}

const sessionColumns = `session_id, identity_id, day, punch_in_ms, punch_out_ms, source`

func scanSession(row rowScanner) (types.PunchSession, error) {
	var (
		sess  types.PunchSession
		inMs  int64
		outMs sql.NullInt64
	)
	if err := row.Scan(&sess.ID, &sess.IdentityID, &sess.Date, &inMs, &outMs, &sess.Source); err != nil {
		return types.PunchSession{}, err
	}
	sess.PunchIn = fromMs(inMs)
	sess.PunchOut = fromNullMs(outMs)
	return sess, nil
}

func (s *SessionStore) OpenSession(ctx context.Context, identityID string) (*types.PunchSession, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM punch_sessions
WHERE identity_id = ? AND punch_out_ms IS NULL;
`, identityID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("OpenSession query: %w", err)
	}
	return &sess, nil
}

// InsertOpenSession is "insert if no open row" in one statement; the partial
// unique index ux_punch_sessions_open backs it up for writers in other
// processes.
func (s *SessionStore) InsertOpenSession(ctx context.Context, sess types.PunchSession) error {
	if sess.PunchOut != nil {
		return fmt.Errorf("insert session %s: punch_out must be empty", sess.ID)
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO punch_sessions(session_id, identity_id, day, punch_in_ms, punch_out_ms, source)
SELECT ?, ?, ?, ?, NULL, ?
WHERE NOT EXISTS (
  SELECT 1 FROM punch_sessions WHERE identity_id = ? AND punch_out_ms IS NULL
);
`, sess.ID, sess.IdentityID, sess.Date, toMs(sess.PunchIn), sess.Source, sess.IdentityID)
		if err != nil {
			if isOpenSessionConflict(err) {
				return fmt.Errorf("insert session for %s: %w", sess.IdentityID, store.ErrAlreadyOpen)
			}
			return fmt.Errorf("InsertOpenSession: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("insert session for %s: %w", sess.IdentityID, store.ErrAlreadyOpen)
		}
		return nil
	})
}

func isOpenSessionConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") &&
		strings.Contains(msg, "punch_sessions.identity_id")
}

func (s *SessionStore) CloseSession(ctx context.Context, sessionID string, at time.Time) (types.PunchSession, error) {
	atMs := toMs(at)

	var (
		sess    types.PunchSession
		outcome error
	)
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE punch_sessions
SET punch_out_ms = ?
WHERE session_id = ?
  AND punch_out_ms IS NULL
  AND punch_in_ms < ?;
`, atMs, sessionID, atMs)
		if err != nil {
			return fmt.Errorf("CloseSession update: %w", err)
		}
		won, _ := res.RowsAffected()

		row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM punch_sessions WHERE session_id = ?;`, sessionID)
		sess, err = scanSession(row)
		if errors.Is(err, sql.ErrNoRows) {
			outcome = fmt.Errorf("close session %s: %w", sessionID, store.ErrNotFound)
			return nil
		}
		if err != nil {
			return fmt.Errorf("CloseSession select: %w", err)
		}

		switch {
		case won == 1:
		case sess.PunchOut != nil:
			outcome = fmt.Errorf("close session %s: %w", sessionID, store.ErrNotOpen)
		default:
			outcome = fmt.Errorf("close session %s: %w", sessionID, store.ErrInvalidPunchOut)
		}
		return nil
	})
	if err != nil {
		return types.PunchSession{}, err
	}
	return sess, outcome
}

func (s *SessionStore) SessionsBetween(ctx context.Context, from, to time.Time) ([]types.PunchSession, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM punch_sessions
WHERE punch_in_ms >= ? AND punch_in_ms < ?
ORDER BY punch_in_ms;
`, toMs(from), toMs(to))
	if err != nil {
		return nil, fmt.Errorf("SessionsBetween query: %w", err)
	}
	return collectSessions(rows)
}

func (s *SessionStore) OpenSessions(ctx context.Context) ([]types.PunchSession, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM punch_sessions
WHERE punch_out_ms IS NULL
ORDER BY punch_in_ms;
`)
	if err != nil {
		return nil, fmt.Errorf("OpenSessions query: %w", err)
	}
	return collectSessions(rows)
}

func (s *SessionStore) SessionsForIdentity(ctx context.Context, identityID string) ([]types.PunchSession, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM punch_sessions
WHERE identity_id = ?
ORDER BY punch_in_ms DESC;
`, identityID)
	if err != nil {
		return nil, fmt.Errorf("SessionsForIdentity query: %w", err)
	}
	return collectSessions(rows)
}

func collectSessions(rows *sql.Rows) ([]types.PunchSession, error) {
	defer rows.Close()
	var out []types.PunchSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
