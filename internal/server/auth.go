package server

import (
	"context"
	"fmt"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
)

// IdentityVerifier turns a bearer credential into the caller's uid.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (uid string, err error)
}

// NewVerifier returns the verifier selected by config.AuthMode.
func NewVerifier(ctx context.Context, config shared.ServerConfig) (IdentityVerifier, error) {
	switch config.AuthMode {
	case shared.AuthModeHMAC:
		return NewHMACVerifier(config.JWTSecret)
	case shared.AuthModeOIDC:
		return NewOIDCVerifier(ctx, config.OIDCIssuer, config.OIDCAudience)
	default:
		return nil, fmt.Errorf("%w: unsupported auth_mode %q", shared.ErrInvalidConfig, config.AuthMode)
	}
}

// HMACVerifier accepts HS256 tokens signed with a shared secret. The uid is the sub claim.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates an HMACVerifier.
func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: server.jwt_secret", shared.ErrMissingConfig)
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (string, error) {
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no subject", shared.ErrUnauthenticated)
	}
	return sub, nil
}

// IssueToken signs an HS256 caller token for uid, e.g. for local clients and scripts.
func IssueToken(secret, uid string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: server.jwt_secret", shared.ErrMissingConfig)
	}
	if uid == "" {
		return "", fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// OIDCVerifier accepts ID tokens from an OpenID Connect issuer.
type OIDCVerifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewOIDCVerifier performs discovery against issuer. An empty audience skips the client id check.
func NewOIDCVerifier(ctx context.Context, issuer, audience string) (*OIDCVerifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("%w: server.oidc_issuer", shared.ErrMissingConfig)
	}
	provider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("OIDC provider discovery failed for %s: %w", issuer, err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(oidcConfig(audience))}, nil
}

func oidcConfig(audience string) *gooidc.Config {
	return &gooidc.Config{ClientID: audience, SkipClientIDCheck: audience == ""}
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (string, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	}
	if idToken.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", shared.ErrUnauthenticated)
	}
	return idToken.Subject, nil
}

type ctxKey int

const (
	uidKey ctxKey = iota
	requestIDKey
)

// CallerUID returns the verified caller uid, or "" for anonymous requests.
func CallerUID(ctx context.Context) string {
	uid, _ := ctx.Value(uidKey).(string)
	return uid
}

// RequestID returns the id assigned to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
