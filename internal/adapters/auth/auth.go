// Package auth verifies the admin bearer tokens that gate mutating routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the verified caller.
type Identity struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// Authenticator turns an opaque bearer token into an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// claims is the JWT payload.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTAuthenticator verifies and mints HS256 tokens for the single admin.
type JWTAuthenticator struct {
	secret     []byte
	issuer     string
	adminEmail string
	ttl        time.Duration
	now        func() time.Time
}

// Option applies a configuration option to the JWTAuthenticator.
type Option func(*JWTAuthenticator)

// WithIssuer sets the expected and issued "iss" claim.
func WithIssuer(issuer string) Option {
	return func(a *JWTAuthenticator) {
		if issuer != "" {
			a.issuer = issuer
		}
	}
}

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) Option {
	return func(a *JWTAuthenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *JWTAuthenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewJWTAuthenticator creates an authenticator accepting only adminEmail.
func NewJWTAuthenticator(secret, adminEmail string, opts ...Option) *JWTAuthenticator {
	a := &JWTAuthenticator{
		secret:     []byte(secret),
		issuer:     "rivalry",
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		ttl:        12 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate verifies signature, issuer and expiry, then checks the email
// against the configured admin.
func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (Identity, error) {
	if len(a.secret) == 0 {
		return Identity{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: token is required", ErrUnauthenticated)
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}

	email := strings.ToLower(strings.TrimSpace(parsed.Email))
	if email == "" || a.adminEmail == "" || email != a.adminEmail {
		return Identity{}, ErrForbidden
	}
	return Identity{
		Subject:   parsed.Subject,
		Email:     email,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}, nil
}

// Issue mints a token for email valid for the configured TTL.
func (a *JWTAuthenticator) Issue(email string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := a.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token is expired", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: signature is invalid", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: issuer mismatch", ErrUnauthenticated)
	default:
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

var _ Authenticator = (*JWTAuthenticator)(nil)
