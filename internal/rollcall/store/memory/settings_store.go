package memory

import (
	"context"
	"sync"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type SettingsStore struct {
	mu       sync.RWMutex
	settings types.Settings
}

func NewSettingsStore(initial types.Settings) *SettingsStore {
	return &SettingsStore{settings: initial}
}

func (s *SettingsStore) GetSettings(_ context.Context) (types.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *SettingsStore) PutSettings(_ context.Context, settings types.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}
