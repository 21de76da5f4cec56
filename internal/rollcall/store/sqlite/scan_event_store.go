package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/civicdesk/rollcall/internal/db"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
)

type ScanEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewScanEventStore(db *sql.DB, writer *dbpkg.Worker) *ScanEventStore {
	return &ScanEventStore{db: db, writer: writer}
}

func (s *ScanEventStore) RecordEvent(ctx context.Context, rec store.ScanEventRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}

	var score any
	if rec.Score != nil {
		score = *rec.Score
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if rec.KioskID != "" {
			if err := ensureKiosk(ctx, tx, rec.KioskID, toMs(rec.DecidedAt)); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO scan_events(
  event_id, kiosk_id, evidence, identity_id, action, rejection, message, score, decided_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, nullString(rec.KioskID), rec.Evidence, nullString(rec.IdentityID),
			nullString(rec.Action), nullString(rec.Rejection), rec.Message, score, toMs(rec.DecidedAt),
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}

// PruneOlderThan deletes scan events decided before cutoff, using
// idx_scan_events_time for the range scan.
func (s *ScanEventStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM scan_events
WHERE decided_at_ms < ?;
`, toMs(cutoff))
		if err != nil {
			return fmt.Errorf("PruneOlderThan scan_events: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
