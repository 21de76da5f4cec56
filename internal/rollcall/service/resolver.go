package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type EvidenceKind string

const (
	EvidenceQR        EvidenceKind = "qr"
	EvidenceBiometric EvidenceKind = "biometric"
)

// Evidence is what a kiosk submits: a scanned QR payload, or the outcome of
// a biometric match (MatchErr set when matching itself failed).
type Evidence struct {
	Kind      EvidenceKind
	QRPayload string
	Match     types.MatchResult
	MatchErr  error
	KioskID   string
}

// Decision describes a resolution.  On rejection Identity is filled in as
// far as resolution got, so kiosks can still greet the member.
type Decision struct {
	Action          types.Action
	Identity        types.Identity
	Session         types.PunchSession
	DurationMinutes *int
	Score           *int
	At              time.Time
}

type ResolverConfig struct {
	// BlockAllChannels extends the QR block flag to the biometric channel.
	BlockAllChannels bool

	// MaxAttempts bounds re-resolution after a lost open-session race.
	MaxAttempts int
}

const defaultMaxAttempts = 3

// KioskScanResolver turns evidence into a punch decision.  It is the only
// place lower-level errors become kiosk-facing rejections.
type KioskScanResolver struct {
	settings   *SettingsService
	issuer     *TokenIssuer
	identities store.IdentityStore
	ledger     *PunchLedger
	kiosks     *KioskRegistry
	audit      auditTrail
	clock      Clock
	cfg        ResolverConfig
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

type ResolverDeps struct {
	Settings   *SettingsService
	Issuer     *TokenIssuer
	Identities store.IdentityStore
	Ledger     *PunchLedger
	Kiosks     *KioskRegistry // optional
	Notifier   Notifier       // optional
	Events     store.ScanEventStore
	Clock      Clock
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

func NewKioskScanResolver(deps ResolverDeps, cfg ResolverConfig) *KioskScanResolver {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &KioskScanResolver{
		settings:   deps.Settings,
		issuer:     deps.Issuer,
		identities: deps.Identities,
		ledger:     deps.Ledger,
		kiosks:     deps.Kiosks,
		audit: auditTrail{
			notifier: deps.Notifier,
			events:   deps.Events,
			metrics:  deps.Metrics,
			logger:   deps.Logger,
		},
		clock:   deps.Clock,
		cfg:     cfg,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
}

func (r *KioskScanResolver) Resolve(ctx context.Context, ev Evidence) (Decision, error) {
	start := time.Now()
	ctx, span := otel.Tracer("rollcall/service").Start(ctx, "scan.Resolve")
	defer span.End()

	now := r.clock.Now().UTC().Truncate(time.Millisecond)
	ev.KioskID = strings.TrimSpace(ev.KioskID)

	dec, err := r.resolve(ctx, ev, now)
	dec.At = now

	outcome := string(dec.Action)
	rec := store.ScanEventRecord{
		KioskID:    ev.KioskID,
		Evidence:   string(ev.Kind),
		IdentityID: dec.Identity.ID,
		Score:      dec.Score,
		DecidedAt:  now,
	}

	var rej *Rejection
	switch {
	case err == nil:
		rec.Action = string(dec.Action)
		rec.Message = DecisionMessage(dec)
		r.logger.Info().
			Str("evidence", string(ev.Kind)).
			Str("kiosk_id", ev.KioskID).
			Str("identity_id", dec.Identity.ID).
			Str("council_id", dec.Identity.CouncilID).
			Str("action", outcome).
			Msg("scan accepted")
	case errors.As(err, &rej):
		outcome = string(rej.Kind)
		rec.Rejection = string(rej.Kind)
		rec.Message = rej.Message()
		r.logger.Info().
			Str("evidence", string(ev.Kind)).
			Str("kiosk_id", ev.KioskID).
			Str("identity_id", dec.Identity.ID).
			Str("rejection", string(rej.Kind)).
			Str("class", string(rej.Class())).
			Msg("scan rejected")
	default:
		outcome = "internal_error"
		rec.Rejection = outcome
		rec.Message = "internal error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error().Err(err).Str("evidence", string(ev.Kind)).Str("kiosk_id", ev.KioskID).Msg("scan failed")
	}

	span.SetAttributes(
		attribute.String("evidence", string(ev.Kind)),
		attribute.String("outcome", outcome),
	)
	r.audit.record(ctx, rec)
	r.metrics.ObserveScan(string(ev.Kind), outcome, start)
	return dec, err
}

func (r *KioskScanResolver) resolve(ctx context.Context, ev Evidence, now time.Time) (Decision, error) {
	var dec Decision

	if ev.Kind != EvidenceQR && ev.Kind != EvidenceBiometric {
		return dec, &Rejection{Kind: KindInvalidEvidence, Reason: fmt.Sprintf("unsupported evidence kind %q", ev.Kind)}
	}

	snap, err := r.settings.Snapshot(ctx)
	if err != nil {
		return dec, err
	}

	if r.kiosks != nil {
		if err := r.kiosks.Admit(ctx, ev.KioskID); err != nil {
			return dec, err
		}
	}

	// 1. Resolve identity.
	var (
		identityID string
		source     string
	)
	switch ev.Kind {
	case EvidenceQR:
		if !snap.QREnabled {
			return dec, reject(KindQRDisabled)
		}
		tok, err := r.issuer.Redeem(ctx, ev.QRPayload, now)
		if err != nil {
			if tok.IdentityID != "" {
				if ident, lerr := r.identities.GetIdentity(ctx, tok.IdentityID); lerr == nil {
					dec.Identity = ident
				}
			}
			return dec, err
		}
		identityID = tok.IdentityID
		source = types.SourceQR

	case EvidenceBiometric:
		if ev.MatchErr != nil {
			return dec, HardwareRejection(ev.MatchErr)
		}
		score := ev.Match.Score
		dec.Score = &score
		if !ev.Match.Matched() {
			return dec, &Rejection{Kind: KindNoMatch, Score: &score}
		}
		identityID = ev.Match.CandidateID
		source = types.SourceBiometric
	}

	ident, err := r.identities.GetIdentity(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return dec, reject(KindUnknownIdentity)
	}
	if err != nil {
		return dec, fmt.Errorf("resolve identity: %w", err)
	}
	dec.Identity = ident

	// 2. Block flag.
	if ident.QRBlocked && (ev.Kind == EvidenceQR || r.cfg.BlockAllChannels) {
		return dec, &Rejection{Kind: KindIdentityBlocked, Reason: ident.QRBlockReason}
	}

	// 3-5. Read state, decide, commit; re-read after a lost race.
	var lastRace error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			r.metrics.IncLedgerRetry()
		}

		open, err := r.ledger.OpenSessionFor(ctx, ident.ID)
		if err != nil {
			return dec, err
		}

		if open == nil {
			if err := r.checkWindow(snap, now); err != nil {
				return dec, err
			}
			sess, err := r.ledger.CommitPunchIn(ctx, ident.ID, now, source)
			if errors.Is(err, ErrAlreadyOpen) {
				lastRace = err
				continue
			}
			if err != nil {
				return dec, err
			}
			dec.Action = types.ActionPunchIn
			dec.Session = sess
			r.commitSideEffects(ctx, dec, ev.KioskID, now)
			return dec, nil
		}

		if err := checkMinDuration(snap, *open, now); err != nil {
			return dec, err
		}
		sess, err := r.ledger.CommitPunchOut(ctx, open.ID, now)
		if errors.Is(err, ErrNotOpen) {
			lastRace = err
			continue
		}
		if err != nil {
			return dec, err
		}
		minutes := int(sess.Duration(now).Minutes())
		dec.Action = types.ActionPunchOut
		dec.Session = sess
		dec.DurationMinutes = &minutes
		r.commitSideEffects(ctx, dec, ev.KioskID, now)
		return dec, nil
	}

	return dec, lastRace
}

func (r *KioskScanResolver) commitSideEffects(ctx context.Context, dec Decision, kioskID string, now time.Time) {
	r.metrics.IncPunch(string(dec.Action), dec.Session.Source)
	r.audit.publish(ctx, dec.Action, dec.Identity, dec.Session, dec.Session.Source, kioskID, now)
}

// checkWindow accepts start <= now <= end at second resolution, both ends
// inclusive.  A window whose end is before its start wraps past midnight.
func (r *KioskScanResolver) checkWindow(snap types.Settings, now time.Time) error {
	if !snap.TimeWindowEnabled {
		return nil
	}
	start, err := types.ParseTimeOfDay(snap.StartTime)
	if err != nil {
		return fmt.Errorf("time window start: %w", err)
	}
	end, err := types.ParseTimeOfDay(snap.EndTime)
	if err != nil {
		return fmt.Errorf("time window end: %w", err)
	}

	h, m, s := now.In(r.ledger.Location()).Clock()
	tod := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second

	inside := tod >= start && tod <= end
	if end < start {
		inside = tod >= start || tod <= end
	}
	if !inside {
		return &Rejection{Kind: KindOutsideWindow, Start: snap.StartTime, End: snap.EndTime}
	}
	return nil
}

// checkMinDuration requires now - punchIn >= punchout_min_minutes and now
// strictly after punchIn.  Remaining minutes round up and are at least 1.
func checkMinDuration(snap types.Settings, open types.PunchSession, now time.Time) error {
	need := time.Duration(snap.PunchoutMinMinutes) * time.Minute
	elapsed := now.Sub(open.PunchIn)
	if elapsed >= need && elapsed > 0 {
		return nil
	}
	remaining := int(math.Ceil((need - elapsed).Minutes()))
	if remaining < 1 {
		remaining = 1
	}
	return &Rejection{Kind: KindTooSoon, RemainingMinutes: remaining}
}

// DecisionMessage is the kiosk text for an accepted decision.
func DecisionMessage(dec Decision) string {
	switch dec.Action {
	case types.ActionPunchIn:
		return "Punched in successfully"
	case types.ActionPunchOut:
		return "Punched out successfully"
	}
	return ""
}
