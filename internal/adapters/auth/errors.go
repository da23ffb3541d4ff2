package auth

import "errors"

// Sentinel kinds for authentication failures.
var (
	// ErrUnauthenticated means the token is missing, malformed, expired or badly signed.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the token is valid but does not belong to the admin.
	ErrForbidden = errors.New("not authorized")
	// ErrNotConfigured means no signing secret was configured.
	ErrNotConfigured = errors.New("authenticator not configured")
)
