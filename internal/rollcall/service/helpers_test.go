package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/notify"
	"github.com/civicdesk/rollcall/internal/rollcall/biometric"
	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/store/memory"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

var (
	// Monday 2 March 2026, 08:00 UTC.
	base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	testSecret = []byte("test-qr-signing-secret-0123456789")
)

func roster() []types.Identity {
	return []types.Identity{
		{ID: "x", CouncilID: "CC-X", Name: "Xavier", Committee: "Technical", Role: "member"},
		{ID: "y", CouncilID: "CC-Y", Name: "Yasmin", Committee: "Cultural", Role: "member", QRBlocked: true, QRBlockReason: "misuse"},
		{ID: "z", CouncilID: "CC-Z", Name: "Zoya", Committee: "Sports", Role: "head"},
	}
}

type fixtureOpts struct {
	settings         types.Settings
	blockAllChannels bool
	knownKiosks      []string
	notifier         service.Notifier
	identities       store.IdentityStore
}

type option func(*fixtureOpts)

func withSettings(fn func(*types.Settings)) option {
	return func(o *fixtureOpts) { fn(&o.settings) }
}

func withBlockAllChannels() option { return func(o *fixtureOpts) { o.blockAllChannels = true } }

func withKnownKiosks(ids ...string) option { return func(o *fixtureOpts) { o.knownKiosks = ids } }

func withNotifier(n service.Notifier) option { return func(o *fixtureOpts) { o.notifier = n } }

func withIdentityStore(s store.IdentityStore) option { return func(o *fixtureOpts) { o.identities = s } }

type fixture struct {
	clock      *service.ManualClock
	identities store.IdentityStore
	tokens     *memory.TokenStore
	sessions   *memory.SessionStore
	templates  *memory.TemplateStore
	events     *memory.ScanEventStore
	kiosks     *memory.KioskStore
	hub        *notify.Hub
	metrics    *metrics.Metrics

	settings *service.SettingsService
	codec    *service.PayloadCodec
	issuer   *service.TokenIssuer
	ledger   *service.PunchLedger
	registry *service.KioskRegistry
	resolver *service.KioskScanResolver
	admin    *service.AdminService
	view     *service.AttendanceView
	scanner  *service.BiometricScanner
}

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()

	o := fixtureOpts{settings: types.DefaultSettings()}
	for _, opt := range opts {
		opt(&o)
	}

	f := &fixture{
		clock:     service.NewManualClock(base),
		tokens:    memory.NewTokenStore(),
		sessions:  memory.NewSessionStore(),
		templates: memory.NewTemplateStore(),
		events:    memory.NewScanEventStore(),
		kiosks:    memory.NewKioskStore(o.knownKiosks),
		hub:       notify.NewHub(),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	f.identities = o.identities
	if f.identities == nil {
		f.identities = memory.NewIdentityStore(roster()...)
	}

	var notifier service.Notifier = f.hub
	if o.notifier != nil {
		notifier = o.notifier
	}

	log := zerolog.Nop()
	codec, err := service.NewPayloadCodec(testSecret)
	require.NoError(t, err)
	f.codec = codec

	f.settings = service.NewSettingsService(memory.NewSettingsStore(o.settings), f.clock, log)
	f.issuer = service.NewTokenIssuer(f.identities, f.tokens, f.settings, codec, f.clock, f.metrics, log)
	f.ledger = service.NewPunchLedger(f.sessions, time.UTC)
	f.registry = service.NewKioskRegistry(f.kiosks, len(o.knownKiosks) > 0, f.clock, log)
	f.resolver = service.NewKioskScanResolver(service.ResolverDeps{
		Settings:   f.settings,
		Issuer:     f.issuer,
		Identities: f.identities,
		Ledger:     f.ledger,
		Kiosks:     f.registry,
		Notifier:   notifier,
		Events:     f.events,
		Clock:      f.clock,
		Metrics:    f.metrics,
		Logger:     log,
	}, service.ResolverConfig{BlockAllChannels: o.blockAllChannels})
	f.admin = service.NewAdminService(service.AdminDeps{
		Identities: f.identities,
		Templates:  f.templates,
		Ledger:     f.ledger,
		Notifier:   notifier,
		Events:     f.events,
		Clock:      f.clock,
		Metrics:    f.metrics,
		Logger:     log,
	})
	f.view = service.NewAttendanceView(f.ledger, f.identities, f.clock)

	matcher := biometric.NewMatcher(biometric.ByteScorer{}, biometric.Config{}, log)
	f.scanner = service.NewBiometricScanner(f.templates, matcher, f.resolver, f.metrics)
	return f
}

func (f *fixture) issue(t *testing.T, identityID string) string {
	t.Helper()
	tok, err := f.issuer.Issue(context.Background(), identityID)
	require.NoError(t, err)
	return tok.Payload
}

func (f *fixture) scanQR(payload string) (service.Decision, error) {
	return f.resolver.Resolve(context.Background(), service.Evidence{Kind: service.EvidenceQR, QRPayload: payload})
}

// punch issues a fresh token for identityID and scans it immediately.
func (f *fixture) punch(t *testing.T, identityID string) (service.Decision, error) {
	t.Helper()
	return f.scanQR(f.issue(t, identityID))
}

func (f *fixture) openCount(identityID string) int {
	n := 0
	for _, s := range f.sessions.All() {
		if s.IdentityID == identityID && s.Open() {
			n++
		}
	}
	return n
}

func requireRejection(t *testing.T, err error, kind service.Kind) *service.Rejection {
	t.Helper()
	require.Error(t, err)
	rej, ok := service.AsRejection(err)
	require.Truef(t, ok, "expected rejection %s, got %v", kind, err)
	require.Equal(t, kind, rej.Kind, "rejection: %v", err)
	return rej
}
