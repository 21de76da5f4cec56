package store

import (
	"context"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// TemplateStore keeps one active template per identity; UpsertTemplate
// replaces any earlier enrollment.
type TemplateStore interface {
	UpsertTemplate(ctx context.Context, tpl types.EnrolledTemplate) error
	DeleteTemplate(ctx context.Context, identityID string) error
	ListTemplates(ctx context.Context) ([]types.EnrolledTemplate, error)
}
