// Package redis holds the shared QR nonce store used when several rollcall
// instances serve the same kiosks.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

const (
	tokenKeyPrefix = "rollcall:qr:"

	// DefaultGrace keeps an expired key around long enough that a late scan
	// reports "expired" instead of "not found".
	DefaultGrace = 10 * time.Minute
)

const (
	consumeNotFound = 0
	consumeOK       = 1
	consumeExpired  = 2
	consumeUsed     = 3
)

// consumeScript checks and marks a token in one server-side step.  Status
// codes follow the store's precedence: missing, expired, then used.
var consumeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local now = tonumber(ARGV[1])
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at_ms'))
if now > exp then
  return 2
end
if redis.call('HEXISTS', KEYS[1], 'consumed_at_ms') == 1 then
  return 3
end
redis.call('HSET', KEYS[1], 'consumed_at_ms', ARGV[1])
return 1
`)

type TokenStore struct {
	client goredis.UniversalClient
	grace  time.Duration
}

// Option configures a TokenStore.
type Option func(*TokenStore)

// WithGrace overrides DefaultGrace.
func WithGrace(d time.Duration) Option {
	return func(s *TokenStore) {
		if d > 0 {
			s.grace = d
		}
	}
}

func NewTokenStore(client goredis.UniversalClient, opts ...Option) *TokenStore {
	s := &TokenStore{client: client, grace: DefaultGrace}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func tokenKey(nonce string) string { return tokenKeyPrefix + nonce }

func (s *TokenStore) CreateToken(ctx context.Context, tok types.QrToken) error {
	key := tokenKey(tok.Nonce)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"identity_id", tok.IdentityID,
			"issued_at_ms", tok.IssuedAt.UTC().UnixMilli(),
			"expires_at_ms", tok.ExpiresAt.UTC().UnixMilli(),
		)
		pipe.PExpireAt(ctx, key, tok.ExpiresAt.Add(s.grace))
		return nil
	})
	if err != nil {
		return fmt.Errorf("CreateToken %s: %w", tok.Nonce, err)
	}
	return nil
}

func (s *TokenStore) ConsumeToken(ctx context.Context, nonce string, now time.Time) (types.QrToken, error) {
	key := tokenKey(nonce)
	status, err := consumeScript.Run(ctx, s.client, []string{key}, now.UTC().UnixMilli()).Int()
	if err != nil {
		return types.QrToken{}, fmt.Errorf("ConsumeToken script: %w", err)
	}
	if status == consumeNotFound {
		return types.QrToken{}, fmt.Errorf("qr token: %w", store.ErrNotFound)
	}

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return types.QrToken{}, fmt.Errorf("ConsumeToken read: %w", err)
	}
	tok := decodeToken(nonce, fields)

	switch status {
	case consumeOK:
		return tok, nil
	case consumeExpired:
		return tok, fmt.Errorf("qr token: %w", store.ErrExpired)
	case consumeUsed:
		return tok, fmt.Errorf("qr token: %w", store.ErrAlreadyUsed)
	default:
		return types.QrToken{}, fmt.Errorf("ConsumeToken: unexpected status %d", status)
	}
}

// PruneOlderThan is a no-op; keys carry their own expiry.
func (s *TokenStore) PruneOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Health reports whether the redis connection is usable.
func (s *TokenStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeToken(nonce string, fields map[string]string) types.QrToken {
	tok := types.QrToken{
		Nonce:      nonce,
		IdentityID: fields["identity_id"],
		IssuedAt:   msField(fields, "issued_at_ms"),
		ExpiresAt:  msField(fields, "expires_at_ms"),
	}
	if _, ok := fields["consumed_at_ms"]; ok {
		t := msField(fields, "consumed_at_ms")
		tok.ConsumedAt = &t
	}
	return tok
}

func msField(fields map[string]string, name string) time.Time {
	ms, _ := strconv.ParseInt(fields[name], 10, 64)
	return time.UnixMilli(ms).UTC()
}
