package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

func TestKioskRegistry_Heartbeat(t *testing.T) {
	f := newFixture(t, withKnownKiosks("kiosk-lobby"))
	ctx := context.Background()
	ready := true

	resp, err := f.registry.Heartbeat(ctx, types.KioskHeartbeatRequest{
		KioskDeviceID:   " kiosk-lobby ",
		AppVersion:      "1.4.0",
		ReaderConnected: &ready,
	})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.True(t, resp.Known)
	assert.Equal(t, "kiosk-lobby", resp.KioskDeviceID)
	assert.Equal(t, "2026-03-02T08:00:00Z", resp.ServerTime)

	resp, err = f.registry.Heartbeat(ctx, types.KioskHeartbeatRequest{KioskDeviceID: "kiosk-new"})
	require.NoError(t, err)
	assert.False(t, resp.Known)

	_, err = f.registry.Heartbeat(ctx, types.KioskHeartbeatRequest{})
	requireRejection(t, err, service.KindInvalidEvidence)

	list, err := f.registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1.4.0", list[0].AppVersion)
	require.NotNil(t, list[0].ReaderConnected)
	assert.True(t, *list[0].ReaderConnected)
}

func TestKioskRegistry_AdmitOpenMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.registry.Admit(ctx, "anything"))
	require.NoError(t, f.registry.Admit(ctx, ""))

	list, err := f.registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "blank kiosk ids are not tracked")
	assert.False(t, list[0].Known)
}
