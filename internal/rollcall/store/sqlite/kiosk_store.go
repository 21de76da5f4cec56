package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/civicdesk/rollcall/internal/db"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
)

type KioskStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewKioskStore(db *sql.DB, writer *dbpkg.Worker) *KioskStore {
	return &KioskStore{db: db, writer: writer}
}

// IsKnown treats "known" as commissioned by an admin (enabled = 1).
func (s *KioskStore) IsKnown(ctx context.Context, kioskID string) (bool, error) {
	kioskID = strings.TrimSpace(kioskID)
	if kioskID == "" {
		return false, nil
	}

	var enabled int
	err := s.db.QueryRowContext(ctx, `SELECT enabled FROM kiosks WHERE kiosk_id = ?;`, kioskID).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsKnown query: %w", err)
	}
	return enabled == 1, nil
}

func (s *KioskStore) MarkSeen(ctx context.Context, kioskID string, _ bool, t time.Time) error {
	kioskID = strings.TrimSpace(kioskID)
	if kioskID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := toMs(t)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureKiosk(ctx, tx, kioskID, ms); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE kiosks
SET last_seen_at_ms = ?,
    updated_at_ms   = ?
WHERE kiosk_id = ?;
`, ms, ms, kioskID); err != nil {
			return fmt.Errorf("MarkSeen update kiosk: %w", err)
		}
		return nil
	})
}

func (s *KioskStore) RecordHeartbeat(ctx context.Context, rec store.KioskRecord) error {
	kioskID := strings.TrimSpace(rec.KioskID)
	if kioskID == "" {
		return nil
	}
	if rec.LastSeen.IsZero() {
		rec.LastSeen = time.Now().UTC()
	}
	ms := toMs(rec.LastSeen)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureKiosk(ctx, tx, kioskID, ms); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE kiosks
SET last_seen_at_ms  = ?,
    app_version      = ?,
    reader_connected = ?,
    camera_ready     = ?,
    updated_at_ms    = ?
WHERE kiosk_id = ?;
`, ms, nullString(strings.TrimSpace(rec.AppVersion)), nullBool(rec.ReaderConnected), nullBool(rec.CameraReady), ms, kioskID); err != nil {
			return fmt.Errorf("RecordHeartbeat update kiosk: %w", err)
		}
		return nil
	})
}

func (s *KioskStore) ListKiosks(ctx context.Context) ([]store.KioskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT kiosk_id, enabled, last_seen_at_ms, app_version, reader_connected, camera_ready
FROM kiosks
ORDER BY kiosk_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListKiosks query: %w", err)
	}
	defer rows.Close()

	var out []store.KioskRecord
	for rows.Next() {
		var (
			rec      store.KioskRecord
			enabled  int
			lastSeen sql.NullInt64
			version  sql.NullString
			reader   sql.NullInt64
			camera   sql.NullInt64
		)
		if err := rows.Scan(&rec.KioskID, &enabled, &lastSeen, &version, &reader, &camera); err != nil {
			return nil, fmt.Errorf("ListKiosks scan: %w", err)
		}
		rec.Known = enabled == 1
		if lastSeen.Valid {
			rec.LastSeen = fromMs(lastSeen.Int64)
		}
		rec.AppVersion = version.String
		rec.ReaderConnected = fromNullBool(reader)
		rec.CameraReady = fromNullBool(camera)
		out = append(out, rec)
	}
	return out, rows.Err()
}
