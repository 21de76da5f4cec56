package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	sqlitestore "github.com/civicdesk/rollcall/internal/rollcall/store/sqlite"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

func newToken(nonce, identityID string, issued time.Time, ttl time.Duration) types.QrToken {
	return types.QrToken{
		Nonce:      nonce,
		IdentityID: identityID,
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(ttl),
	}
}

func TestTokenStore_ConsumeOnce(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, w, "u1")
	ts := sqlitestore.NewTokenStore(conn, w)
	ctx := context.Background()

	issued := at(9, 0)
	require.NoError(t, ts.CreateToken(ctx, newToken("n1", "u1", issued, 15*time.Second)))

	tok, err := ts.ConsumeToken(ctx, "n1", issued.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "u1", tok.IdentityID)
	require.NotNil(t, tok.ConsumedAt)
	assert.True(t, tok.Consumed())

	tok, err = ts.ConsumeToken(ctx, "n1", issued.Add(6*time.Second))
	require.ErrorIs(t, err, store.ErrAlreadyUsed)
	assert.Equal(t, "u1", tok.IdentityID, "token returned alongside already-used")
}

func TestTokenStore_ExpiryBoundary(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, w, "u1")
	ts := sqlitestore.NewTokenStore(conn, w)
	ctx := context.Background()

	issued := at(9, 0)
	require.NoError(t, ts.CreateToken(ctx, newToken("edge", "u1", issued, 15*time.Second)))
	require.NoError(t, ts.CreateToken(ctx, newToken("late", "u1", issued, 15*time.Second)))

	// now == ExpiresAt is still valid.
	_, err := ts.ConsumeToken(ctx, "edge", issued.Add(15*time.Second))
	require.NoError(t, err)

	_, err = ts.ConsumeToken(ctx, "late", issued.Add(15*time.Second+time.Millisecond))
	require.ErrorIs(t, err, store.ErrExpired)
}

func TestTokenStore_ExpiredTakesPrecedenceOverUsed(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, w, "u1")
	ts := sqlitestore.NewTokenStore(conn, w)
	ctx := context.Background()

	issued := at(9, 0)
	require.NoError(t, ts.CreateToken(ctx, newToken("n1", "u1", issued, 15*time.Second)))
	_, err := ts.ConsumeToken(ctx, "n1", issued.Add(time.Second))
	require.NoError(t, err)

	_, err = ts.ConsumeToken(ctx, "n1", issued.Add(time.Minute))
	require.ErrorIs(t, err, store.ErrExpired)
}

func TestTokenStore_UnknownNonce(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ts := sqlitestore.NewTokenStore(conn, w)

	_, err := ts.ConsumeToken(context.Background(), "never-issued", at(9, 0))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTokenStore_ConcurrentConsumeHasOneWinner(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, w, "u1")
	ts := sqlitestore.NewTokenStore(conn, w)
	ctx := context.Background()

	issued := at(9, 0)
	require.NoError(t, ts.CreateToken(ctx, newToken("n1", "u1", issued, 15*time.Second)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ts.ConsumeToken(ctx, "n1", issued.Add(time.Second)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestTokenStore_PruneOlderThan(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, w, "u1")
	ts := sqlitestore.NewTokenStore(conn, w)
	ctx := context.Background()

	require.NoError(t, ts.CreateToken(ctx, newToken("old", "u1", at(8, 0), 15*time.Second)))
	require.NoError(t, ts.CreateToken(ctx, newToken("new", "u1", at(9, 0), 15*time.Second)))

	deleted, err := ts.PruneOlderThan(ctx, at(8, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = ts.ConsumeToken(ctx, "old", at(8, 0))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = ts.ConsumeToken(ctx, "new", at(9, 0))
	assert.NoError(t, err)
}
