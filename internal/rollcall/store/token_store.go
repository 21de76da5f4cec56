package store

import (
	"context"
	"time"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type TokenStore interface {
	CreateToken(ctx context.Context, tok types.QrToken) error

	// ConsumeToken atomically marks the token consumed and returns it.  Of two
	// concurrent calls for the same nonce exactly one succeeds.  Failures, in
	// precedence order: ErrNotFound, ErrExpired (now > ExpiresAt),
	// ErrAlreadyUsed.  The token is returned alongside the latter two.
	ConsumeToken(ctx context.Context, nonce string, now time.Time) (types.QrToken, error)

	// PruneOlderThan removes tokens that expired before cutoff.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
