package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("duplicate match id")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrClosed        = errors.New("store is closed")
)
