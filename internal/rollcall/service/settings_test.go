package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

func TestSettings_UpdateStampsAndStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next := types.DefaultSettings()
	next.QRExpirySeconds = 30
	next.TimeWindowEnabled = true
	next.StartTime = " 07:30 "
	next.EndTime = "19:00:30"

	saved, err := f.settings.Update(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "07:30", saved.StartTime)
	assert.True(t, saved.UpdatedAt.Equal(base))

	snap, err := f.settings.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, snap.QRExpirySeconds)
	assert.Equal(t, "19:00:30", snap.EndTime)
}

func TestSettings_UpdateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*types.Settings)
		field string
	}{
		{"expiry too short", func(s *types.Settings) { s.QRExpirySeconds = 4 }, "qr_expiry_seconds"},
		{"expiry too long", func(s *types.Settings) { s.QRExpirySeconds = 121 }, "qr_expiry_seconds"},
		{"negative minimum", func(s *types.Settings) { s.PunchoutMinMinutes = -1 }, "punchout_min_minutes"},
		{"minimum too long", func(s *types.Settings) { s.PunchoutMinMinutes = 241 }, "punchout_min_minutes"},
		{"bad start", func(s *types.Settings) { s.StartTime = "25:00" }, "start_time"},
		{"bad end", func(s *types.Settings) { s.EndTime = "6pm" }, "end_time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			next := types.DefaultSettings()
			tc.mut(&next)

			_, err := f.settings.Update(context.Background(), next)
			rej := requireRejection(t, err, service.KindInvalidSettings)
			assert.Contains(t, rej.Fields, tc.field)

			// Nothing was stored.
			snap, err := f.settings.Snapshot(context.Background())
			require.NoError(t, err)
			assert.Equal(t, types.DefaultSettings(), snap)
		})
	}
}

func TestSettings_WindowNeedsBothEnds(t *testing.T) {
	f := newFixture(t)
	next := types.DefaultSettings()
	next.TimeWindowEnabled = true
	next.EndTime = ""

	_, err := f.settings.Update(context.Background(), next)
	requireRejection(t, err, service.KindInvalidSettings)
}

func TestSettings_SnapshotIsPerDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.punch(t, "x")
	require.NoError(t, err)

	// Lowering the minimum applies to the very next scan.
	next := types.DefaultSettings()
	next.PunchoutMinMinutes = 5
	_, err = f.settings.Update(ctx, next)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	dec, err := f.punch(t, "x")
	require.NoError(t, err)
	assert.Equal(t, types.ActionPunchOut, dec.Action)
}
