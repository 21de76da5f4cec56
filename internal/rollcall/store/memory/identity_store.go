package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type IdentityStore struct {
	mu         sync.RWMutex
	identities map[string]types.Identity
}

func NewIdentityStore(seed ...types.Identity) *IdentityStore {
	s := &IdentityStore{identities: make(map[string]types.Identity, len(seed))}
	for _, ident := range seed {
		s.identities[ident.ID] = ident
	}
	return s
}

func (s *IdentityStore) GetIdentity(_ context.Context, id string) (types.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.identities[id]
	if !ok {
		return types.Identity{}, fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	return ident, nil
}

func (s *IdentityStore) ListIdentities(_ context.Context) ([]types.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Identity, 0, len(s.identities))
	for _, ident := range s.identities {
		out = append(out, ident)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CouncilID < out[j].CouncilID })
	return out, nil
}

func (s *IdentityStore) UpsertIdentity(_ context.Context, ident types.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[ident.ID] = ident
	return nil
}

func (s *IdentityStore) SetQRBlock(_ context.Context, id string, blocked bool, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[id]
	if !ok {
		return fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	ident.QRBlocked = blocked
	if blocked {
		ident.QRBlockReason = reason
		t := at
		ident.QRBlockedAt = &t
	} else {
		ident.QRBlockReason = ""
		ident.QRBlockedAt = nil
	}
	s.identities[id] = ident
	return nil
}
