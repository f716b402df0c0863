// Package auth exposes the signed-in user as an injected capability. Sessions are issued
// by an external provider; this package only verifies the tokens it hands out.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/m1ll3r1337/incident-report-service/internal/errs"
)

type User struct {
	ID    string
	Name  string
	Email string
	Token string
}

// CurrentUser resolves the user on whose behalf a form is filled in.
type CurrentUser interface {
	Current(ctx context.Context) (User, bool)
}

// Anonymous never resolves a user.
type Anonymous struct{}

func (Anonymous) Current(context.Context) (User, bool) { return User{}, false }

// Fixed always resolves the same user. Used by the CLI where the token comes from a flag.
type Fixed User

func (f Fixed) Current(context.Context) (User, bool) { return User(f), f.ID != "" }

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext is the CurrentUser backed by the request context.
type FromContext struct{}

func (FromContext) Current(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok && u.ID != ""
}

type claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (v *Verifier) Enabled() bool { return v != nil && len(v.secret) > 0 }

func (v *Verifier) Verify(raw string) (User, error) {
	const op = "auth.verifier.verify"

	if !v.Enabled() {
		return User{}, errs.E(errs.KindUnauthorized, "AUTH_DISABLED", op, "token verification not configured", nil, nil)
	}

	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return User{}, errs.E(errs.KindUnauthorized, "TOKEN_MISSING", op, "missing token", nil, nil)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return v.secret, nil }, opts...)
	if err != nil {
		code := "TOKEN_INVALID"
		if errors.Is(err, jwt.ErrTokenExpired) {
			code = "TOKEN_EXPIRED"
		}
		return User{}, errs.E(errs.KindUnauthorized, code, op, "invalid token", nil, err)
	}
	if c.Subject == "" {
		return User{}, errs.E(errs.KindUnauthorized, "TOKEN_NO_SUBJECT", op, "token has no subject", nil, nil)
	}

	return User{ID: c.Subject, Name: c.Name, Email: c.Email, Token: raw}, nil
}

// Sign issues a token the way the session provider does. Tests and local tooling use it.
func (v *Verifier) Sign(u User, ttl time.Duration) (string, error) {
	now := v.now()
	c := claims{
		Name:  u.Name,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}
