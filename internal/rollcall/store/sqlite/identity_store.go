package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/civicdesk/rollcall/internal/db"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type IdentityStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewIdentityStore(db *sql.DB, writer *dbpkg.Worker) *IdentityStore {
	return &IdentityStore{db: db, writer: writer}
}

const identityColumns = `identity_id, council_id, name, committee_name, role,
  qr_blocked, qr_block_reason, qr_blocked_at_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (types.Identity, error) {
	var (
		ident     types.Identity
		committee sql.NullString
		blocked   int
		reason    sql.NullString
		blockedAt sql.NullInt64
	)
	if err := row.Scan(&ident.ID, &ident.CouncilID, &ident.Name, &committee, &ident.Role,
		&blocked, &reason, &blockedAt); err != nil {
		return types.Identity{}, err
	}
	ident.Committee = committee.String
	ident.QRBlocked = blocked == 1
	ident.QRBlockReason = reason.String
	ident.QRBlockedAt = fromNullMs(blockedAt)
	return ident, nil
}

func (s *IdentityStore) GetIdentity(ctx context.Context, id string) (types.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE identity_id = ?;`, id)
	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Identity{}, fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("GetIdentity query: %w", err)
	}
	return ident, nil
}

func (s *IdentityStore) ListIdentities(ctx context.Context) ([]types.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY council_id;`)
	if err != nil {
		return nil, fmt.Errorf("ListIdentities query: %w", err)
	}
	defer rows.Close()

	var out []types.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("ListIdentities scan: %w", err)
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}

func (s *IdentityStore) UpsertIdentity(ctx context.Context, ident types.Identity) error {
	now := toMs(time.Now())
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO identities(
  identity_id, council_id, name, committee_name, role,
  qr_blocked, qr_block_reason, qr_blocked_at_ms, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(identity_id) DO UPDATE SET
  council_id = excluded.council_id,
  name = excluded.name,
  committee_name = excluded.committee_name,
  role = excluded.role,
  qr_blocked = excluded.qr_blocked,
  qr_block_reason = excluded.qr_block_reason,
  qr_blocked_at_ms = excluded.qr_blocked_at_ms,
  updated_at_ms = excluded.updated_at_ms;
`,
			ident.ID, ident.CouncilID, ident.Name, nullString(ident.Committee), ident.Role,
			boolInt(ident.QRBlocked), nullString(ident.QRBlockReason), nullMs(ident.QRBlockedAt), now, now,
		); err != nil {
			return fmt.Errorf("UpsertIdentity: %w", err)
		}
		return nil
	})
}

func (s *IdentityStore) SetQRBlock(ctx context.Context, id string, blocked bool, reason string, at time.Time) error {
	var (
		reasonArg    any
		blockedAtArg any
	)
	if blocked {
		reasonArg = nullString(reason)
		blockedAtArg = toMs(at)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE identities
SET qr_blocked = ?,
    qr_block_reason = ?,
    qr_blocked_at_ms = ?,
    updated_at_ms = ?
WHERE identity_id = ?;
`, boolInt(blocked), reasonArg, blockedAtArg, toMs(at), id)
		if err != nil {
			return fmt.Errorf("SetQRBlock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
		}
		return nil
	})
}
