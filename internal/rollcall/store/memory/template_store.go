package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]types.EnrolledTemplate
}

func NewTemplateStore() *TemplateStore {
	return &TemplateStore{templates: make(map[string]types.EnrolledTemplate)}
}

func (s *TemplateStore) UpsertTemplate(_ context.Context, tpl types.EnrolledTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl.Template = append([]byte(nil), tpl.Template...)
	s.templates[tpl.IdentityID] = tpl
	return nil
}

func (s *TemplateStore) DeleteTemplate(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[identityID]; !ok {
		return fmt.Errorf("template for %s: %w", identityID, store.ErrNotFound)
	}
	delete(s.templates, identityID)
	return nil
}

func (s *TemplateStore) ListTemplates(_ context.Context) ([]types.EnrolledTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.EnrolledTemplate, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}
