package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/civicdesk/rollcall/internal/db"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type SettingsStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSettingsStore(db *sql.DB, writer *dbpkg.Worker) *SettingsStore {
	return &SettingsStore{db: db, writer: writer}
}

func (s *SettingsStore) GetSettings(ctx context.Context) (types.Settings, error) {
	var (
		st        types.Settings
		qr, win   int
		updatedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT qr_enabled, qr_expiry_seconds, time_window_enabled,
       start_time, end_time, punchout_min_minutes, updated_at_ms
FROM attendance_settings
WHERE id = 1;
`).Scan(&qr, &st.QRExpirySeconds, &win, &st.StartTime, &st.EndTime, &st.PunchoutMinMinutes, &updatedMs)
	if err == sql.ErrNoRows {
		return types.DefaultSettings(), nil
	}
	if err != nil {
		return types.Settings{}, fmt.Errorf("GetSettings query: %w", err)
	}
	st.QREnabled = qr == 1
	st.TimeWindowEnabled = win == 1
	if updatedMs > 0 {
		st.UpdatedAt = fromMs(updatedMs)
	}
	return st, nil
}

func (s *SettingsStore) PutSettings(ctx context.Context, st types.Settings) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO attendance_settings(
  id, qr_enabled, qr_expiry_seconds, time_window_enabled,
  start_time, end_time, punchout_min_minutes, updated_at_ms
) VALUES (1, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  qr_enabled = excluded.qr_enabled,
  qr_expiry_seconds = excluded.qr_expiry_seconds,
  time_window_enabled = excluded.time_window_enabled,
  start_time = excluded.start_time,
  end_time = excluded.end_time,
  punchout_min_minutes = excluded.punchout_min_minutes,
  updated_at_ms = excluded.updated_at_ms;
`,
			boolInt(st.QREnabled), st.QRExpirySeconds, boolInt(st.TimeWindowEnabled),
			st.StartTime, st.EndTime, st.PunchoutMinMinutes, toMs(st.UpdatedAt),
		); err != nil {
			return fmt.Errorf("PutSettings: %w", err)
		}
		return nil
	})
}
