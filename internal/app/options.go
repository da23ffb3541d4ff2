package service

import (
	"time"

	"github.com/okian/rivalry/internal/adapters/repository"
	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/rating"
	"github.com/okian/rivalry/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the refresh queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the match ID replay cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMatchStore sets where matches are kept.
func WithMatchStore(st repository.MatchStore) Option {
	return func(s *Service) { s.matches = st }
}

// WithSeasonStore sets where season counters are kept.
func WithSeasonStore(st repository.SeasonStore) Option {
	return func(s *Service) { s.seasons = st }
}

// WithRatingStore sets where refreshed ratings are written.
func WithRatingStore(st repository.RatingStore) Option {
	return func(s *Service) { s.ratings = st }
}

// WithStore uses one backend for matches, seasons and ratings.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.matches, s.seasons, s.ratings = st, st, st
	}
}

// WithSports sets the tracked sports.
func WithSports(sports ...model.SportConfig) Option {
	return func(s *Service) {
		s.sports = append([]model.SportConfig(nil), sports...)
	}
}

// WithPlayers sets the labels of player A and player B.
func WithPlayers(a, b string) Option {
	return func(s *Service) {
		if a != "" && b != "" {
			s.playerA, s.playerB = a, b
		}
	}
}

// WithElo sets the rating engine parameters.
func WithElo(k float64, initial int) Option {
	return func(s *Service) {
		s.engine = rating.New(rating.WithK(k), rating.WithInitial(initial))
	}
}

// WithNotifier sets who hears about matches, seasons and ratings.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
