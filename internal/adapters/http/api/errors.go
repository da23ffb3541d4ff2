package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/rivalry/internal/app"
	"github.com/okian/rivalry/internal/adapters/auth"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnknownSport = errors.New("unknown sport")
)

// wrapKind tags err with an API kind and the failing operation.
func wrapKind(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// classify maps an error onto a status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidMatch),
		errors.Is(err, service.ErrInvalidSeason):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnknownSport), errors.Is(err, service.ErrUnknownSport):
		return http.StatusNotFound, "unknown_sport"
	case errors.Is(err, service.ErrMatchConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, auth.ErrNotConfigured):
		return http.StatusServiceUnavailable, "auth_not_configured"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
