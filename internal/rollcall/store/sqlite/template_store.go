package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/civicdesk/rollcall/internal/db"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type TemplateStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTemplateStore(db *sql.DB, writer *dbpkg.Worker) *TemplateStore {
	return &TemplateStore{db: db, writer: writer}
}

func (s *TemplateStore) UpsertTemplate(ctx context.Context, tpl types.EnrolledTemplate) error {
	if tpl.EnrolledAt.IsZero() {
		tpl.EnrolledAt = time.Now().UTC()
	}
	ms := toMs(tpl.EnrolledAt)
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO biometric_templates(identity_id, template, enrolled_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(identity_id) DO UPDATE SET
  template = excluded.template,
  enrolled_at_ms = excluded.enrolled_at_ms,
  updated_at_ms = excluded.updated_at_ms;
`, tpl.IdentityID, tpl.Template, ms, ms); err != nil {
			return fmt.Errorf("UpsertTemplate: %w", err)
		}
		return nil
	})
}

func (s *TemplateStore) DeleteTemplate(ctx context.Context, identityID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM biometric_templates WHERE identity_id = ?;`, identityID)
		if err != nil {
			return fmt.Errorf("DeleteTemplate: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("template for %s: %w", identityID, store.ErrNotFound)
		}
		return nil
	})
}

func (s *TemplateStore) ListTemplates(ctx context.Context) ([]types.EnrolledTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT identity_id, template, enrolled_at_ms
FROM biometric_templates
ORDER BY identity_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListTemplates query: %w", err)
	}
	defer rows.Close()

	var out []types.EnrolledTemplate
	for rows.Next() {
		var (
			tpl types.EnrolledTemplate
			ms  int64
		)
		if err := rows.Scan(&tpl.IdentityID, &tpl.Template, &ms); err != nil {
			return nil, fmt.Errorf("ListTemplates scan: %w", err)
		}
		tpl.EnrolledAt = fromMs(ms)
		out = append(out, tpl)
	}
	return out, rows.Err()
}
