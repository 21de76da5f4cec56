package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

const nonceBytes = 32

// TokenIssuer mints and redeems single-use QR tokens.  It never touches the
// punch ledger.
type TokenIssuer struct {
	identities store.IdentityStore
	tokens     store.TokenStore
	settings   *SettingsService
	codec      *PayloadCodec
	clock      Clock
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	random io.Reader
}

type IssuedToken struct {
	Token     types.QrToken
	Payload   string
	ExpiresIn int
}

func NewTokenIssuer(
	identities store.IdentityStore,
	tokens store.TokenStore,
	settings *SettingsService,
	codec *PayloadCodec,
	clock Clock,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *TokenIssuer {
	return &TokenIssuer{
		identities: identities,
		tokens:     tokens,
		settings:   settings,
		codec:      codec,
		clock:      clock,
		metrics:    m,
		logger:     logger,
		random:     rand.Reader,
	}
}

// Issue mints a token for identityID valid for the snapshot's
// qr_expiry_seconds.
func (i *TokenIssuer) Issue(ctx context.Context, identityID string) (IssuedToken, error) {
	ctx, span := otel.Tracer("rollcall/service").Start(ctx, "qr.Issue")
	defer span.End()

	identityID = strings.TrimSpace(identityID)
	ident, err := i.identities.GetIdentity(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return IssuedToken{}, reject(KindUnknownIdentity)
	}
	if err != nil {
		return IssuedToken{}, fmt.Errorf("issue qr: %w", err)
	}

	snap, err := i.settings.Snapshot(ctx)
	if err != nil {
		return IssuedToken{}, err
	}
	if !snap.QREnabled {
		return IssuedToken{}, reject(KindQRDisabled)
	}
	if ident.QRBlocked {
		return IssuedToken{}, &Rejection{Kind: KindIdentityBlocked, Reason: ident.QRBlockReason}
	}

	nonce, err := i.newNonce()
	if err != nil {
		return IssuedToken{}, err
	}

	now := i.clock.Now().UTC().Truncate(time.Millisecond)
	tok := types.QrToken{
		Nonce:      nonce,
		IdentityID: ident.ID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Duration(snap.QRExpirySeconds) * time.Second),
	}

	payload, err := i.codec.Encode(tok.Nonce, tok.IdentityID, tok.IssuedAt, tok.ExpiresAt)
	if err != nil {
		return IssuedToken{}, err
	}
	if err := i.tokens.CreateToken(ctx, tok); err != nil {
		return IssuedToken{}, fmt.Errorf("issue qr: %w", err)
	}

	i.metrics.IncTokensIssued()
	i.logger.Debug().Str("identity_id", ident.ID).Time("expires_at", tok.ExpiresAt).Msg("qr token issued")

	return IssuedToken{Token: tok, Payload: payload, ExpiresIn: snap.QRExpirySeconds}, nil
}

// Redeem verifies payload and consumes its token at now.  Exactly one of any
// number of concurrent redemptions of the same payload succeeds.
func (i *TokenIssuer) Redeem(ctx context.Context, payload string, now time.Time) (types.QrToken, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return types.QrToken{}, reject(KindTokenInvalid)
	}

	nonce, subject, err := i.codec.Decode(payload)
	if err != nil {
		return types.QrToken{}, &Rejection{Kind: KindTokenInvalid, Err: err}
	}

	tok, err := i.tokens.ConsumeToken(ctx, nonce, now)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return types.QrToken{}, reject(KindTokenInvalid)
	case errors.Is(err, store.ErrExpired):
		return tok, reject(KindTokenExpired)
	case errors.Is(err, store.ErrAlreadyUsed):
		return tok, reject(KindTokenAlreadyUsed)
	default:
		return types.QrToken{}, fmt.Errorf("redeem qr: %w", err)
	}

	if tok.IdentityID != subject {
		return types.QrToken{}, reject(KindTokenInvalid)
	}
	return tok, nil
}

func (i *TokenIssuer) newNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := io.ReadFull(i.random, b); err != nil {
		return "", fmt.Errorf("qr nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
