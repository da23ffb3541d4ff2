package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrUnknownSport  = errors.New("unknown sport")
	ErrInvalidMatch  = errors.New("invalid match")
	ErrInvalidSeason = errors.New("invalid season")
	ErrMatchConflict = errors.New("match id conflict")
)
