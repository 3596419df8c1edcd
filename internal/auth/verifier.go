// Package auth gates connection admission: a credential is verified
// once at handshake time and the resolved identity is trusted for the
// connection's lifetime.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hireloop/collab/internal/domain"
)

// AuthErrorKind classifies handshake rejections.
type AuthErrorKind string

const (
	AuthErrorMissing AuthErrorKind = "missing"
	AuthErrorInvalid AuthErrorKind = "invalid"
	AuthErrorExpired AuthErrorKind = "expired"
)

// AuthError rejects a handshake. No connection state exists yet when it
// is returned, so nothing needs cleanup.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth: %s credential", e.Kind)
	}
	return fmt.Sprintf("auth: %s credential: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Verifier resolves a bearer credential to an identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// TokenVerifierConfig describes how to validate platform-issued JWTs.
type TokenVerifierConfig struct {
	SigningSecret []byte
	Issuer        string
	Clock         func() time.Time
}

// TokenVerifier validates HS256 JWTs minted by the platform's auth
// service. This subsystem never issues tokens.
type TokenVerifier struct {
	signingSecret []byte
	issuer        string
	clock         func() time.Time
}

var errMissingSigningSecret = errors.New("signing secret must be provided")

type sessionClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func NewTokenVerifier(cfg TokenVerifierConfig) (*TokenVerifier, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenVerifier{
		signingSecret: cfg.SigningSecret,
		issuer:        strings.TrimSpace(cfg.Issuer),
		clock:         clock,
	}, nil
}

// Verify checks signature and expiry and extracts {userId, role}.
func (v *TokenVerifier) Verify(_ context.Context, credential string) (domain.Identity, error) {
	if strings.TrimSpace(credential) == "" {
		return domain.Identity{}, &AuthError{Kind: AuthErrorMissing}
	}

	claims := &sessionClaims{}
	options := []jwt.ParserOption{jwt.WithTimeFunc(v.clock)}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	_, err := jwt.ParseWithClaims(
		credential,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return v.signingSecret, nil
		},
		options...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, &AuthError{Kind: AuthErrorExpired, Err: err}
		}
		return domain.Identity{}, &AuthError{Kind: AuthErrorInvalid, Err: err}
	}

	identity, err := domain.NewIdentity(claims.UserID, claims.Role, v.clock().UTC())
	if err != nil {
		return domain.Identity{}, &AuthError{Kind: AuthErrorInvalid, Err: err}
	}
	return identity, nil
}

// ExtractCredential pulls the bearer token from the Authorization
// header, falling back to the token query parameter so browser
// WebSocket clients can authenticate in the connection URL.
func ExtractCredential(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
