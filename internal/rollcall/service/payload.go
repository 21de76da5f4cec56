package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const qrIssuer = "rollcall"

// PayloadCodec turns a token's nonce and owner into the opaque string the
// member's screen renders as a QR code, and back.  The signature stops a
// kiosk from accepting a hand-typed nonce; expiry and single use are still
// decided by the token store against the server clock.
type PayloadCodec struct {
	secret []byte
}

func NewPayloadCodec(secret []byte) (*PayloadCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("qr signing secret must be at least 16 bytes")
	}
	return &PayloadCodec{secret: secret}, nil
}

type qrClaims struct {
	jwt.RegisteredClaims
}

func (c *PayloadCodec) Encode(nonce, identityID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := qrClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			Subject:   identityID,
			Issuer:    qrIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign qr payload: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns (nonce, identityID).  Time
// claims are left to the token store.
func (c *PayloadCodec) Decode(payload string) (string, string, error) {
	var claims qrClaims
	_, err := jwt.ParseWithClaims(payload, &claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", "", fmt.Errorf("decode qr payload: %w", err)
	}
	if claims.Issuer != qrIssuer {
		return "", "", fmt.Errorf("decode qr payload: unexpected issuer %q", claims.Issuer)
	}
	if claims.ID == "" || claims.Subject == "" {
		return "", "", errors.New("decode qr payload: missing nonce or subject")
	}
	return claims.ID, claims.Subject, nil
}
