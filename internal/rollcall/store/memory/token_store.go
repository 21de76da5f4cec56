package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// TokenStore keeps QR tokens in memory.  ConsumeToken holds the write lock
// across check and mark, which is what makes redemption single-winner.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]types.QrToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]types.QrToken)}
}

func (s *TokenStore) CreateToken(_ context.Context, tok types.QrToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[tok.Nonce]; exists {
		return fmt.Errorf("token nonce collision")
	}
	s.tokens[tok.Nonce] = tok
	return nil
}

func (s *TokenStore) ConsumeToken(_ context.Context, nonce string, now time.Time) (types.QrToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[nonce]
	if !ok {
		return types.QrToken{}, fmt.Errorf("qr token: %w", store.ErrNotFound)
	}
	if tok.ExpiredAt(now) {
		return tok, fmt.Errorf("qr token: %w", store.ErrExpired)
	}
	if tok.Consumed() {
		return tok, fmt.Errorf("qr token: %w", store.ErrAlreadyUsed)
	}

	t := now
	tok.ConsumedAt = &t
	s.tokens[nonce] = tok
	return tok, nil
}

func (s *TokenStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for nonce, tok := range s.tokens {
		if tok.ExpiresAt.Before(cutoff) {
			delete(s.tokens, nonce)
			deleted++
		}
	}
	return deleted, nil
}
