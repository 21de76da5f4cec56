package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// AdminService carries the operator overrides: forced punches, QR blocks and
// biometric enrollment.  Overrides still go through the ledger, so the
// one-open-session rule holds for them too.
type AdminService struct {
	identities store.IdentityStore
	templates  store.TemplateStore
	ledger     *PunchLedger
	audit      auditTrail
	clock      Clock
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

type AdminDeps struct {
	Identities store.IdentityStore
	Templates  store.TemplateStore
	Ledger     *PunchLedger
	Notifier   Notifier
	Events     store.ScanEventStore
	Clock      Clock
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

func NewAdminService(deps AdminDeps) *AdminService {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &AdminService{
		identities: deps.Identities,
		templates:  deps.Templates,
		ledger:     deps.Ledger,
		audit: auditTrail{
			notifier: deps.Notifier,
			events:   deps.Events,
			metrics:  deps.Metrics,
			logger:   deps.Logger,
		},
		clock:   deps.Clock,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
}

func (a *AdminService) identity(ctx context.Context, id string) (types.Identity, error) {
	ident, err := a.identities.GetIdentity(ctx, strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return types.Identity{}, reject(KindUnknownIdentity)
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("lookup identity: %w", err)
	}
	return ident, nil
}

func (a *AdminService) at(t time.Time) time.Time {
	if t.IsZero() {
		t = a.clock.Now()
	}
	return t.UTC().Truncate(time.Millisecond)
}

// ForcePunchOut closes the identity's open session without the minimum
// duration check.  at must still be after the punch-in.
func (a *AdminService) ForcePunchOut(ctx context.Context, identityID string, at time.Time, actor string) (types.PunchSession, error) {
	ident, err := a.identity(ctx, identityID)
	if err != nil {
		return types.PunchSession{}, err
	}
	at = a.at(at)

	open, err := a.ledger.OpenSessionFor(ctx, ident.ID)
	if err != nil {
		return types.PunchSession{}, err
	}
	if open == nil {
		return types.PunchSession{}, reject(KindNotOpen)
	}

	sess, err := a.ledger.CommitPunchOut(ctx, open.ID, at)
	if err != nil {
		a.recordOverride(ctx, ident, "", err, at)
		return types.PunchSession{}, err
	}

	a.metrics.IncPunch(string(types.ActionPunchOut), types.SourceAdmin)
	a.audit.publish(ctx, types.ActionPunchOut, ident, sess, types.SourceAdmin, "", at)
	a.recordOverride(ctx, ident, types.ActionPunchOut, nil, at)
	a.logger.Info().Str("actor", actor).Str("identity_id", ident.ID).Str("session_id", sess.ID).Msg("forced punch-out")
	return sess, nil
}

// ManualPunchIn opens a session for the identity outside any time window and
// without scan evidence.
func (a *AdminService) ManualPunchIn(ctx context.Context, identityID string, at time.Time, actor string) (types.PunchSession, error) {
	ident, err := a.identity(ctx, identityID)
	if err != nil {
		return types.PunchSession{}, err
	}
	at = a.at(at)

	sess, err := a.ledger.CommitPunchIn(ctx, ident.ID, at, types.SourceAdmin)
	if err != nil {
		a.recordOverride(ctx, ident, "", err, at)
		return types.PunchSession{}, err
	}

	a.metrics.IncPunch(string(types.ActionPunchIn), types.SourceAdmin)
	a.audit.publish(ctx, types.ActionPunchIn, ident, sess, types.SourceAdmin, "", at)
	a.recordOverride(ctx, ident, types.ActionPunchIn, nil, at)
	a.logger.Info().Str("actor", actor).Str("identity_id", ident.ID).Str("session_id", sess.ID).Msg("manual punch-in")
	return sess, nil
}

func (a *AdminService) recordOverride(ctx context.Context, ident types.Identity, action types.Action, err error, at time.Time) {
	rec := store.ScanEventRecord{
		Evidence:   types.SourceAdmin,
		IdentityID: ident.ID,
		Action:     string(action),
		DecidedAt:  at,
	}
	if err != nil {
		rec.Rejection = "internal_error"
		rec.Message = "internal error"
		if rej, ok := AsRejection(err); ok {
			rec.Rejection = string(rej.Kind)
			rec.Message = rej.Message()
		}
	} else {
		rec.Message = DecisionMessage(Decision{Action: action})
	}
	a.audit.record(ctx, rec)
}

// Block sets the QR block flag with a reason members see verbatim.
func (a *AdminService) Block(ctx context.Context, identityID, reason, actor string) (types.Identity, error) {
	return a.setBlock(ctx, identityID, true, strings.TrimSpace(reason), actor)
}

func (a *AdminService) Unblock(ctx context.Context, identityID, actor string) (types.Identity, error) {
	return a.setBlock(ctx, identityID, false, "", actor)
}

func (a *AdminService) setBlock(ctx context.Context, identityID string, blocked bool, reason, actor string) (types.Identity, error) {
	ident, err := a.identity(ctx, identityID)
	if err != nil {
		return types.Identity{}, err
	}
	if err := a.identities.SetQRBlock(ctx, ident.ID, blocked, reason, a.clock.Now().UTC()); err != nil {
		return types.Identity{}, fmt.Errorf("set qr block: %w", err)
	}
	a.logger.Info().Str("actor", actor).Str("identity_id", ident.ID).Bool("blocked", blocked).Msg("qr block changed")
	return a.identities.GetIdentity(ctx, ident.ID)
}

// ListQRStatus returns every identity with its block flag.
func (a *AdminService) ListQRStatus(ctx context.Context) ([]types.Identity, error) {
	return a.identities.ListIdentities(ctx)
}

// Enroll replaces the identity's active template.
func (a *AdminService) Enroll(ctx context.Context, identityID string, template []byte) (types.EnrollmentInfo, error) {
	ident, err := a.identity(ctx, identityID)
	if err != nil {
		return types.EnrollmentInfo{}, err
	}
	if len(template) == 0 {
		return types.EnrollmentInfo{}, &Rejection{Kind: KindInvalidEvidence, Reason: "template is required"}
	}

	tpl := types.EnrolledTemplate{
		IdentityID: ident.ID,
		Template:   template,
		EnrolledAt: a.clock.Now().UTC().Truncate(time.Millisecond),
	}
	if err := a.templates.UpsertTemplate(ctx, tpl); err != nil {
		return types.EnrollmentInfo{}, fmt.Errorf("enroll: %w", err)
	}
	a.logger.Info().Str("identity_id", ident.ID).Int("template_bytes", len(template)).Msg("fingerprint enrolled")
	return enrollmentInfo(ident, tpl), nil
}

func (a *AdminService) Unenroll(ctx context.Context, identityID string) error {
	err := a.templates.DeleteTemplate(ctx, strings.TrimSpace(identityID))
	if errors.Is(err, store.ErrNotFound) {
		return reject(KindUnknownIdentity)
	}
	return err
}

// ListEnrollments lists enrolled identities without template bytes.
func (a *AdminService) ListEnrollments(ctx context.Context) ([]types.EnrollmentInfo, error) {
	tpls, err := a.templates.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]types.EnrollmentInfo, 0, len(tpls))
	for _, tpl := range tpls {
		ident, err := a.identities.GetIdentity(ctx, tpl.IdentityID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if ident.ID == "" {
			ident.ID = tpl.IdentityID
		}
		out = append(out, enrollmentInfo(ident, tpl))
	}
	return out, nil
}

func enrollmentInfo(ident types.Identity, tpl types.EnrolledTemplate) types.EnrollmentInfo {
	return types.EnrollmentInfo{
		IdentityID: ident.ID,
		CouncilID:  ident.CouncilID,
		Name:       ident.Name,
		Committee:  ident.Committee,
		EnrolledAt: tpl.EnrolledAt,
	}
}
