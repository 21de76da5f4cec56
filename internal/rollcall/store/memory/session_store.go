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

// SessionStore is the in-memory punch ledger.  openByIdentity mirrors the
// sqlite partial unique index: at most one open session per identity.
type SessionStore struct {
	mu             sync.Mutex
	sessions       map[string]types.PunchSession
	order          []string
	openByIdentity map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:       make(map[string]types.PunchSession),
		openByIdentity: make(map[string]string),
	}
}

func (s *SessionStore) OpenSession(_ context.Context, identityID string) (*types.PunchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.openByIdentity[identityID]
	if !ok {
		return nil, nil
	}
	sess := s.sessions[id]
	return &sess, nil
}

func (s *SessionStore) InsertOpenSession(_ context.Context, sess types.PunchSession) error {
	if sess.PunchOut != nil {
		return fmt.Errorf("insert session %s: punch_out must be empty", sess.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.openByIdentity[sess.IdentityID]; ok {
		return fmt.Errorf("insert session for %s: %w", sess.IdentityID, store.ErrAlreadyOpen)
	}
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	s.openByIdentity[sess.IdentityID] = sess.ID
	return nil
}

func (s *SessionStore) CloseSession(_ context.Context, sessionID string, at time.Time) (types.PunchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return types.PunchSession{}, fmt.Errorf("close session %s: %w", sessionID, store.ErrNotFound)
	}
	if !sess.Open() {
		return sess, fmt.Errorf("close session %s: %w", sessionID, store.ErrNotOpen)
	}
	if !at.After(sess.PunchIn) {
		return sess, fmt.Errorf("close session %s: %w", sessionID, store.ErrInvalidPunchOut)
	}
	t := at
	sess.PunchOut = &t
	s.sessions[sessionID] = sess
	delete(s.openByIdentity, sess.IdentityID)
	return sess, nil
}

func (s *SessionStore) SessionsBetween(_ context.Context, from, to time.Time) ([]types.PunchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.PunchSession
	for _, id := range s.order {
		sess := s.sessions[id]
		if !sess.PunchIn.Before(from) && sess.PunchIn.Before(to) {
			out = append(out, sess)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PunchIn.Before(out[j].PunchIn) })
	return out, nil
}

func (s *SessionStore) OpenSessions(_ context.Context) ([]types.PunchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.PunchSession, 0, len(s.openByIdentity))
	for _, id := range s.openByIdentity {
		out = append(out, s.sessions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PunchIn.Before(out[j].PunchIn) })
	return out, nil
}

func (s *SessionStore) SessionsForIdentity(_ context.Context, identityID string) ([]types.PunchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.PunchSession
	for i := len(s.order) - 1; i >= 0; i-- {
		sess := s.sessions[s.order[i]]
		if sess.IdentityID == identityID {
			out = append(out, sess)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PunchIn.After(out[j].PunchIn) })
	return out, nil
}

// All returns every session in insertion order (for test assertions).
func (s *SessionStore) All() []types.PunchSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.PunchSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}
