package httpapi_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/civicdesk/rollcall/internal/httpapi"
	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/notify"
	"github.com/civicdesk/rollcall/internal/rollcall/biometric"
	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/store/memory"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

var (
	base       = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	authSecret = []byte("http-test-auth-secret-0123456789")
	qrSecret   = []byte("http-test-qr-secret-0123456789ab")
)

type testEnv struct {
	ts     *httptest.Server
	clock  *service.ManualClock
	issuer *service.TokenIssuer
	admin  *service.AdminService
	hub    *notify.Hub

	unhealthy atomic.Bool
}

// newTestServer wires up the full dependency graph using in-memory stores
// and returns an httptest.Server whose URL can be hit with a plain http.Client.
func newTestServer(t *testing.T, knownKiosks []string) *testEnv {
	t.Helper()

	env := &testEnv{clock: service.NewManualClock(base), hub: notify.NewHub()}
	log := zerolog.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	identities := memory.NewIdentityStore(
		types.Identity{ID: "x", CouncilID: "CC-X", Name: "Xavier", Committee: "Technical", Role: "member"},
		types.Identity{ID: "y", CouncilID: "CC-Y", Name: "Yasmin", Committee: "Cultural", Role: "member"},
		types.Identity{ID: "admin", CouncilID: "CC-0001", Name: "Council Admin", Role: "admin"},
	)
	templates := memory.NewTemplateStore()
	events := memory.NewScanEventStore()

	codec, err := service.NewPayloadCodec(qrSecret)
	require.NoError(t, err)

	settings := service.NewSettingsService(memory.NewSettingsStore(types.DefaultSettings()), env.clock, log)
	env.issuer = service.NewTokenIssuer(identities, memory.NewTokenStore(), settings, codec, env.clock, m, log)
	ledger := service.NewPunchLedger(memory.NewSessionStore(), time.UTC)
	kiosks := service.NewKioskRegistry(memory.NewKioskStore(knownKiosks), len(knownKiosks) > 0, env.clock, log)
	resolver := service.NewKioskScanResolver(service.ResolverDeps{
		Settings:   settings,
		Issuer:     env.issuer,
		Identities: identities,
		Ledger:     ledger,
		Kiosks:     kiosks,
		Notifier:   env.hub,
		Events:     events,
		Clock:      env.clock,
		Metrics:    m,
		Logger:     log,
	}, service.ResolverConfig{})
	env.admin = service.NewAdminService(service.AdminDeps{
		Identities: identities,
		Templates:  templates,
		Ledger:     ledger,
		Notifier:   env.hub,
		Events:     events,
		Clock:      env.clock,
		Metrics:    m,
		Logger:     log,
	})
	matcher := biometric.NewMatcher(biometric.ByteScorer{}, biometric.Config{}, log)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     log,
		Addr:       ":0",
		AuthSecret: authSecret,
		Issuer:     env.issuer,
		Resolver:   resolver,
		Scanner:    service.NewBiometricScanner(templates, matcher, resolver, m),
		Kiosks:     kiosks,
		Settings:   settings,
		Admin:      env.admin,
		View:       service.NewAttendanceView(ledger, identities, env.clock),
		Hub:        env.hub,
		Gatherer:   reg,
		Health:     env.healthCheck,
		Clock:      env.clock,
	})

	env.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) healthCheck(context.Context) error {
	if e.unhealthy.Load() {
		return errors.New("db gone")
	}
	return nil
}

func (e *testEnv) token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := httpapi.SignAccessToken(authSecret, subject, role, e.clock.Now(), time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) qr(t *testing.T, identityID string) string {
	t.Helper()
	tok, err := e.issuer.Issue(context.Background(), identityID)
	require.NoError(t, err)
	return tok.Payload
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (e *testEnv) scanQR(t *testing.T, payload string) (*http.Response, []byte) {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/attendance/kiosk/scan-qr", "", types.ScanQRRequest{QR: payload, KioskDeviceID: "kiosk-lobby"})
}

func assertGolden(t *testing.T, name string, body []byte) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.Indent(&buf, body, "", "  "))
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

// ── Kiosk scans ──────────────────────────────────────────────────────────────

func TestScanQR_PunchInTooSoonPunchOut(t *testing.T) {
	env := newTestServer(t, nil)

	resp, body := env.scanQR(t, env.qr(t, "x"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assertGolden(t, "scan_qr_punch_in", body)

	env.clock.Advance(2 * time.Minute)
	resp, body = env.scanQR(t, env.qr(t, "x"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assertGolden(t, "scan_qr_too_soon", body)

	env.clock.Set(base.Add(45 * time.Minute))
	resp, body = env.scanQR(t, env.qr(t, "x"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assertGolden(t, "scan_qr_punch_out", body)
}

func TestScanQR_Blocked(t *testing.T) {
	env := newTestServer(t, nil)
	payload := env.qr(t, "y")
	_, err := env.admin.Block(context.Background(), "y", "misuse", "admin")
	require.NoError(t, err)

	resp, body := env.scanQR(t, payload)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assertGolden(t, "scan_qr_blocked", body)
}

func TestScanQR_ReplayIsConflict(t *testing.T) {
	env := newTestServer(t, nil)
	payload := env.qr(t, "x")

	resp, _ := env.scanQR(t, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.scanQR(t, payload)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var sr types.ScanResponse
	require.NoError(t, json.Unmarshal(body, &sr))
	assert.False(t, sr.Success)
	assert.Equal(t, "token_already_used", sr.Code)
}

func TestScanQR_BadInput(t *testing.T) {
	env := newTestServer(t, nil)

	resp, _ := env.scanQR(t, "garbage")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	r, err := http.Post(env.ts.URL+"/api/attendance/kiosk/scan-qr", "application/json", strings.NewReader(`not json at all`))
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r, err = http.Post(env.ts.URL+"/api/attendance/kiosk/scan-qr", "application/json", strings.NewReader(`{"qr":"a","extra":1}`))
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode, "unknown fields are rejected")
}

func TestScanQR_UnknownKiosk_403(t *testing.T) {
	env := newTestServer(t, []string{"kiosk-gate"})

	resp, body := env.scanQR(t, env.qr(t, "x"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(body), `"code":"unknown_kiosk"`)
}

func TestScanQR_Protobuf(t *testing.T) {
	env := newTestServer(t, nil)

	reqMsg, err := structpb.NewStruct(map[string]any{"qr": env.qr(t, "x"), "kioskDeviceId": "kiosk-lobby"})
	require.NoError(t, err)
	raw, err := proto.Marshal(reqMsg)
	require.NoError(t, err)

	resp, err := http.Post(env.ts.URL+"/api/attendance/kiosk/scan-qr", "application/x-protobuf", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out structpb.Struct
	require.NoError(t, proto.Unmarshal(body, &out))

	fields := out.AsMap()
	assert.Equal(t, true, fields["success"])
	assert.Equal(t, "punch_in", fields["action"])
	member, ok := fields["member"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CC-X", member["councilId"])
}

func TestScanBiometric(t *testing.T) {
	env := newTestServer(t, nil)
	ctx := context.Background()

	resp, body := env.do(t, http.MethodPost, "/api/attendance/kiosk/scan-biometric", "", types.ScanBiometricRequest{
		Template: base64.StdEncoding.EncodeToString([]byte("aaaabbbbbb")),
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), `"code":"no_candidates"`)

	_, err := env.admin.Enroll(ctx, "x", []byte("aaaaaaaaaa"))
	require.NoError(t, err)

	resp, body = env.do(t, http.MethodPost, "/api/attendance/kiosk/scan-biometric", "", types.ScanBiometricRequest{
		Template: base64.StdEncoding.EncodeToString([]byte("aaaabbbbbb")),
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assertGolden(t, "scan_biometric_no_match", body)

	resp, body = env.do(t, http.MethodPost, "/api/attendance/kiosk/scan-biometric", "", types.ScanBiometricRequest{
		Template: base64.StdEncoding.EncodeToString([]byte("aaaaaaaaaa")),
		Quality:  90,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sr types.ScanResponse
	require.NoError(t, json.Unmarshal(body, &sr))
	assert.Equal(t, types.ActionPunchIn, sr.Action)
	require.NotNil(t, sr.Score)
	assert.Equal(t, 2000, *sr.Score)

	resp, _ = env.do(t, http.MethodPost, "/api/attendance/kiosk/scan-biometric", "", map[string]any{"template": "%%%"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Heartbeat ────────────────────────────────────────────────────────────────

func TestHeartbeat_KnownKiosk_OK(t *testing.T) {
	env := newTestServer(t, []string{"kiosk-lobby"})

	resp, body := env.do(t, http.MethodPost, "/api/attendance/kiosk/heartbeat", "", map[string]any{
		"kioskDeviceId":   "kiosk-lobby",
		"appVersion":      "2.1.0",
		"readerConnected": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var hb types.KioskHeartbeatResponse
	require.NoError(t, json.Unmarshal(body, &hb))
	assert.True(t, hb.OK)
	assert.True(t, hb.Known)
	assert.Equal(t, "kiosk-lobby", hb.KioskDeviceID)

	resp, body = env.do(t, http.MethodGet, "/api/admin/kiosks", env.token(t, "admin", httpapi.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"appVersion":"2.1.0"`)
	assert.Contains(t, string(body), `"readerConnected":true`)
}

func TestHeartbeat_UnknownKiosk_StillAccepted(t *testing.T) {
	env := newTestServer(t, []string{"kiosk-lobby"})

	resp, body := env.do(t, http.MethodPost, "/api/attendance/kiosk/heartbeat", "", map[string]any{"kioskDeviceId": "kiosk-new"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var hb types.KioskHeartbeatResponse
	require.NoError(t, json.Unmarshal(body, &hb))
	assert.True(t, hb.OK, "heartbeats are accepted from unknown kiosks")
	assert.False(t, hb.Known)
}

func TestHeartbeat_MissingKioskID_400(t *testing.T) {
	env := newTestServer(t, nil)
	resp, _ := env.do(t, http.MethodPost, "/api/attendance/kiosk/heartbeat", "", map[string]any{"appVersion": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Member endpoints ─────────────────────────────────────────────────────────

func TestQR_RequiresAuth(t *testing.T) {
	env := newTestServer(t, nil)

	resp, _ := env.do(t, http.MethodGet, "/api/attendance/qr", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/attendance/qr", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other, err := httpapi.SignAccessToken([]byte("another-secret-entirely-000000"), "x", httpapi.RoleMember, base, time.Hour)
	require.NoError(t, err)
	resp, _ = env.do(t, http.MethodGet, "/api/attendance/qr", other, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	expired, err := httpapi.SignAccessToken(authSecret, "x", httpapi.RoleMember, base.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	resp, _ = env.do(t, http.MethodGet, "/api/attendance/qr", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestQR_IssueAndRedeem(t *testing.T) {
	env := newTestServer(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/attendance/qr", env.token(t, "x", httpapi.RoleMember), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var qr types.QRResponse
	require.NoError(t, json.Unmarshal(body, &qr))
	assert.True(t, qr.Success)
	assert.Equal(t, 15, qr.ExpiresIn)
	require.NotEmpty(t, qr.QR)

	resp, _ = env.scanQR(t, qr.QR)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQR_BlockedMember(t *testing.T) {
	env := newTestServer(t, nil)
	_, err := env.admin.Block(context.Background(), "y", "misuse", "admin")
	require.NoError(t, err)

	resp, body := env.do(t, http.MethodGet, "/api/attendance/qr", env.token(t, "y", httpapi.RoleMember), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assertGolden(t, "qr_blocked", body)
}

func TestMyAttendanceAndLive(t *testing.T) {
	env := newTestServer(t, nil)
	member := env.token(t, "x", httpapi.RoleMember)

	resp, _ := env.scanQR(t, env.qr(t, "x"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.clock.Advance(90 * time.Minute)
	resp, _ = env.scanQR(t, env.qr(t, "x"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/attendance/my-attendance", member, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"total_hours":1.5`)

	resp, body = env.do(t, http.MethodGet, "/api/attendance/today/live", member, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var live types.LiveResponse
	require.NoError(t, json.Unmarshal(body, &live))
	require.Len(t, live.Records, 1)
	assert.Equal(t, service.StatusCompleted, live.Records[0].Status)
	assert.Equal(t, 90, live.Records[0].DurationMinutes)
}

func TestEventsStream(t *testing.T) {
	env := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.ts.URL+"/api/attendance/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.token(t, "admin", httpapi.RoleAdmin))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	require.Equal(t, ": connected", lines.Text())

	scan, _ := env.scanQR(t, env.qr(t, "x"))
	require.Equal(t, http.StatusOK, scan.StatusCode)

	var event, data string
	for lines.Scan() {
		line := lines.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}
	assert.Equal(t, "attendance:update", event)

	var ev types.PunchEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, types.ActionPunchIn, ev.Type)
	assert.Equal(t, "CC-X", ev.CouncilID)
}

// ── Admin endpoints ──────────────────────────────────────────────────────────

func TestAdmin_RequiresAdminRole(t *testing.T) {
	env := newTestServer(t, nil)

	resp, _ := env.do(t, http.MethodGet, "/api/admin/attendance/settings", env.token(t, "x", httpapi.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/admin/attendance/settings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_Settings(t *testing.T) {
	env := newTestServer(t, nil)
	admin := env.token(t, "admin", httpapi.RoleAdmin)

	resp, body := env.do(t, http.MethodPut, "/api/admin/attendance/settings", admin, map[string]any{"qr_expiry_seconds": 500})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"qr_expiry_seconds"`)

	resp, body = env.do(t, http.MethodPut, "/api/admin/attendance/settings", admin, map[string]any{
		"qr_expiry_seconds":    30,
		"punchout_min_minutes": 10,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sr struct {
		Settings types.Settings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(body, &sr))
	assert.Equal(t, 30, sr.Settings.QRExpirySeconds)
	assert.Equal(t, 10, sr.Settings.PunchoutMinMinutes)
	assert.True(t, sr.Settings.QREnabled, "unspecified fields keep their values")

	resp, body = env.do(t, http.MethodGet, "/api/admin/attendance/settings", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"qr_expiry_seconds":30`)
}

func TestAdmin_BlockUnblock(t *testing.T) {
	env := newTestServer(t, nil)
	admin := env.token(t, "admin", httpapi.RoleAdmin)

	resp, _ := env.do(t, http.MethodPost, "/api/admin/attendance/users/x/block", admin, map[string]any{"reason": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/admin/attendance/users/x/block", admin, map[string]any{"reason": "Shared QR"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"qr_blocked":true`)

	resp, _ = env.do(t, http.MethodGet, "/api/attendance/qr", env.token(t, "x", httpapi.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/attendance/users/x/unblock", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/admin/attendance/users", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), `"qr_blocked":true`)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/attendance/users/ghost/unblock", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_Overrides(t *testing.T) {
	env := newTestServer(t, nil)
	admin := env.token(t, "admin", httpapi.RoleAdmin)

	resp, _ := env.do(t, http.MethodPost, "/api/admin/attendance/users/x/force-punch-out", admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nothing open")

	resp, body := env.do(t, http.MethodPost, "/api/admin/attendance/users/x/manual-punch-in", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"source":"admin"`)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/attendance/users/x/manual-punch-in", admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	env.clock.Advance(time.Minute)
	resp, body = env.do(t, http.MethodPost, "/api/admin/attendance/users/x/force-punch-out", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"punch_out":"2026-03-02T08:01:00Z"`)
}

func TestAdmin_Biometric(t *testing.T) {
	env := newTestServer(t, nil)
	admin := env.token(t, "admin", httpapi.RoleAdmin)

	resp, _ := env.do(t, http.MethodPut, "/api/admin/biometric/x", admin, map[string]any{"template": "not base64!"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPut, "/api/admin/biometric/x", admin, map[string]any{
		"template": base64.StdEncoding.EncodeToString([]byte("tpl")),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"council_id":"CC-X"`)

	resp, body = env.do(t, http.MethodGet, "/api/admin/biometric", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"user_id":"x"`)
	assert.NotContains(t, string(body), "dHBs", "template bytes are never listed")

	resp, _ = env.do(t, http.MethodDelete, "/api/admin/biometric/x", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/admin/biometric/x", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Ops ──────────────────────────────────────────────────────────────────────

func TestHealthAndMetrics(t *testing.T) {
	env := newTestServer(t, nil)

	resp, _ := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env.unhealthy.Store(true)
	resp, _ = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	env.scanQR(t, "garbage")
	resp, body := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `rollcall_scan_decisions_total{evidence="qr",outcome="token_invalid"} 1`)
}
