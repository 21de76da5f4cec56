package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
)

type KioskStore struct {
	mu    sync.RWMutex
	known map[string]struct{}
	seen  map[string]store.KioskRecord
}

func NewKioskStore(knownKiosks []string) *KioskStore {
	k := make(map[string]struct{}, len(knownKiosks))
	for _, id := range knownKiosks {
		id = strings.TrimSpace(id)
		if id != "" {
			k[id] = struct{}{}
		}
	}
	return &KioskStore{
		known: k,
		seen:  make(map[string]store.KioskRecord),
	}
}

func (s *KioskStore) IsKnown(_ context.Context, kioskID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[kioskID]
	return ok, nil
}

func (s *KioskStore) MarkSeen(_ context.Context, kioskID string, known bool, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.seen[kioskID]
	rec.KioskID = kioskID
	rec.Known = known
	rec.LastSeen = t
	s.seen[kioskID] = rec
	return nil
}

func (s *KioskStore) RecordHeartbeat(_ context.Context, rec store.KioskRecord) error {
	if rec.LastSeen.IsZero() {
		rec.LastSeen = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec.Known = s.known[rec.KioskID]
	s.seen[rec.KioskID] = rec
	return nil
}

func (s *KioskStore) ListKiosks(_ context.Context) ([]store.KioskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.KioskRecord, 0, len(s.seen))
	for _, rec := range s.seen {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KioskID < out[j].KioskID })
	return out, nil
}
