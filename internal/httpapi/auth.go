package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/civicdesk/rollcall/internal/rollcall/service"
)

const (
	RoleMember = "member"
	RoleHead   = "head"
	RoleAdmin  = "admin"
)

const authIssuer = "rollcall-auth"

type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type principal struct {
	Subject string
	Role    string
}

type contextKeyPrincipal struct{}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(contextKeyPrincipal{}).(principal)
	return p
}

// SignAccessToken mints a bearer token for subject with role, valid for ttl.
func SignAccessToken(secret []byte, subject, role string, now time.Time, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("auth secret is empty")
	}
	claims := authClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    authIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

type authenticator struct {
	secret []byte
	clock  service.Clock
}

func newAuthenticator(secret []byte, clock service.Clock) *authenticator {
	return &authenticator{secret: secret, clock: clock}
}

func (a *authenticator) parse(raw string) (principal, error) {
	var claims authClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(authIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return principal{}, err
	}
	if claims.Subject == "" {
		return principal{}, errors.New("token has no subject")
	}
	return principal{Subject: claims.Subject, Role: claims.Role}, nil
}

// require rejects requests without a valid bearer token, and when roles are
// given, tokens whose role is not among them.
func (a *authenticator) require(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			p, err := a.parse(strings.TrimSpace(raw))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, p.Role) {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyPrincipal{}, p)))
		})
	}
}
