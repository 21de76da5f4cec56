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

type TokenStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTokenStore(db *sql.DB, writer *dbpkg.Worker) *TokenStore {
	return &TokenStore{db: db, writer: writer}
}

func (s *TokenStore) CreateToken(ctx context.Context, tok types.QrToken) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO qr_tokens(nonce, identity_id, issued_at_ms, expires_at_ms, consumed_at_ms)
VALUES (?, ?, ?, ?, NULL);
`, tok.Nonce, tok.IdentityID, toMs(tok.IssuedAt), toMs(tok.ExpiresAt)); err != nil {
			return fmt.Errorf("CreateToken insert: %w", err)
		}
		return nil
	})
}

// ConsumeToken is a single conditional UPDATE; the row only changes if it is
// still unconsumed and unexpired, so a second redemption always sees
// RowsAffected == 0 even across processes sharing the file.
func (s *TokenStore) ConsumeToken(ctx context.Context, nonce string, now time.Time) (types.QrToken, error) {
	nowMs := toMs(now)

	var (
		tok     types.QrToken
		outcome error
	)
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE qr_tokens
SET consumed_at_ms = ?
WHERE nonce = ?
  AND consumed_at_ms IS NULL
  AND expires_at_ms >= ?;
`, nowMs, nonce, nowMs)
		if err != nil {
			return fmt.Errorf("ConsumeToken update: %w", err)
		}
		won, _ := res.RowsAffected()

		var (
			issuedMs, expiresMs int64
			consumed            sql.NullInt64
		)
		err = tx.QueryRowContext(ctx, `
SELECT identity_id, issued_at_ms, expires_at_ms, consumed_at_ms
FROM qr_tokens
WHERE nonce = ?;
`, nonce).Scan(&tok.IdentityID, &issuedMs, &expiresMs, &consumed)
		if errors.Is(err, sql.ErrNoRows) {
			outcome = fmt.Errorf("qr token: %w", store.ErrNotFound)
			return nil
		}
		if err != nil {
			return fmt.Errorf("ConsumeToken select: %w", err)
		}

		tok.Nonce = nonce
		tok.IssuedAt = fromMs(issuedMs)
		tok.ExpiresAt = fromMs(expiresMs)
		tok.ConsumedAt = fromNullMs(consumed)

		switch {
		case won == 1:
		case expiresMs < nowMs:
			outcome = fmt.Errorf("qr token: %w", store.ErrExpired)
		default:
			outcome = fmt.Errorf("qr token: %w", store.ErrAlreadyUsed)
		}
		return nil
	})
	if err != nil {
		return types.QrToken{}, err
	}
	if outcome != nil && errors.Is(outcome, store.ErrNotFound) {
		return types.QrToken{}, outcome
	}
	return tok, outcome
}

func (s *TokenStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM qr_tokens
WHERE expires_at_ms < ?;
`, toMs(cutoff))
		if err != nil {
			return fmt.Errorf("PruneOlderThan qr_tokens: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
