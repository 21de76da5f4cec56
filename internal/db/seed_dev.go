package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// KnownKiosks are commissioned (enabled=1) so kiosk enforcement can be
	// exercised in dev.
	KnownKiosks []string
}

// SeedDev inserts a small roster and commissions the given kiosks.  It is
// idempotent.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	roster := []struct {
		id, council, name, committee, role string
	}{
		{"u-admin", "CC-0001", "Council Admin", "Secretariat", "admin"},
		{"u-1001", "CC-1001", "Asha Rao", "Technical", "member"},
		{"u-1002", "CC-1002", "Dev Mehta", "Cultural", "member"},
		{"u-1003", "CC-1003", "Ira Khan", "Sports", "head"},
	}

	for _, r := range roster {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO identities(
  identity_id, council_id, name, committee_name, role, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?);`,
			r.id, r.council, r.name, r.committee, r.role, now, now,
		); err != nil {
			return fmt.Errorf("seed identity %s: %w", r.id, err)
		}
	}

	return CommissionKiosks(ctx, db, opt.KnownKiosks)
}

// CommissionKiosks marks each kiosk enabled, creating rows as needed.
func CommissionKiosks(ctx context.Context, db *sql.DB, ids []string) error {
	now := time.Now().UTC().UnixMilli()
	for _, kid := range ids {
		kid = strings.TrimSpace(kid)
		if kid == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, `
INSERT INTO kiosks(kiosk_id, display_name, enabled, created_at_ms, updated_at_ms)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(kiosk_id) DO UPDATE SET
  enabled = 1,
  updated_at_ms = excluded.updated_at_ms;
`, kid, kid, now, now); err != nil {
			return fmt.Errorf("commission kiosk %s: %w", kid, err)
		}
	}
	return nil
}
