// Package repository defines the match, season and rating stores and their
// memory, SQL and Redis implementations.
package repository

import (
	"context"

	"github.com/okian/rivalry/internal/domain/model"
)

// MatchStore persists the match log, the single source of truth.
type MatchStore interface {
	// ListMatches returns a sport's matches ordered by date, then creation
	// time, then ID. Season 0 lists every season.
	ListMatches(ctx context.Context, sport model.Sport, season int) ([]model.Match, error)

	// InsertMatch stores m. Returns ErrDuplicate if m.ID already exists.
	InsertMatch(ctx context.Context, m model.Match) error
}

// SeasonStore tracks the open season of each sport.
type SeasonStore interface {
	// CurrentSeason returns ErrNotFound when the sport has no season yet.
	CurrentSeason(ctx context.Context, sport model.Sport) (int, error)

	// InitSeason creates the tracker row if missing; an existing row is kept.
	InitSeason(ctx context.Context, sport model.Sport, season int) error

	// AdvanceSeason closes the open season and returns the new one.
	// A sport without a row is treated as being in season 1.
	AdvanceSeason(ctx context.Context, sport model.Sport) (int, error)
}

// RatingStore receives recomputed ratings. Values written here are a cache
// for readers; they are never used as input to the rating engine.
type RatingStore interface {
	// UpsertRating writes the rating for (sport, player), replacing any previous value.
	UpsertRating(ctx context.Context, sport model.Sport, player string, rating int) error

	// Ratings returns every stored player rating for the sport.
	Ratings(ctx context.Context, sport model.Sport) (map[string]int, error)
}

// Store bundles the three stores served by a single backend.
type Store interface {
	MatchStore
	SeasonStore
	RatingStore
	Close() error
}
