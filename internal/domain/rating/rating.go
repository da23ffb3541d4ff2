// Package rating computes Elo ratings for the two rivals of a sport.
//
// Ratings are never stored as input: every call folds the full, date-ordered
// match history from the initial rating. The fold is pure, so the functions
// here are safe for concurrent use.
package rating

import (
	"math"

	"github.com/okian/rivalry/internal/domain/model"
)

// Default Elo parameters.
const (
	DefaultK       = 32.0
	DefaultInitial = 1000
)

// Engine holds the Elo parameters.
type Engine struct {
	k       float64
	initial int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithK sets the K-factor. It is used as given; a k of zero freezes ratings.
func WithK(k float64) Option {
	return func(e *Engine) {
		e.k = k
	}
}

// WithInitial sets the starting rating of both players.
func WithInitial(initial int) Option {
	return func(e *Engine) {
		e.initial = initial
	}
}

// New creates an Engine with defaults k=32 and initial=1000.
func New(opts ...Option) *Engine {
	e := &Engine{
		k:       DefaultK,
		initial: DefaultInitial,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// K returns the configured K-factor.
func (e *Engine) K() float64 { return e.k }

// Initial returns the configured starting rating.
func (e *Engine) Initial() int { return e.initial }

// Start returns the rating pair before any match.
func (e *Engine) Start() model.Ratings {
	return model.Ratings{RatingA: e.initial, RatingB: e.initial}
}

// Compute folds matches into the final rating pair. Matches must already be
// in processing order (see model.Match.Before); Compute does not sort.
func (e *Engine) Compute(matches []model.Match) model.Ratings {
	r := e.Start()
	for i := range matches {
		r, _, _ = e.Step(r, matches[i])
	}
	return r
}

// History returns the rating pair after every match, in input order.
// Its last point always equals Compute on the same input.
func (e *Engine) History(matches []model.Match) []model.RatingPoint {
	points := make([]model.RatingPoint, 0, len(matches))
	r := e.Start()
	for i := range matches {
		var da, db int
		r, da, db = e.Step(r, matches[i])
		points = append(points, model.RatingPoint{
			MatchID: matches[i].ID,
			Date:    matches[i].Date,
			Season:  matches[i].Season,
			RatingA: r.RatingA,
			RatingB: r.RatingB,
			DeltaA:  da,
			DeltaB:  db,
		})
	}
	return points
}

// Step applies one match to r and returns the new pair and the rounded deltas.
// Deltas are rounded half to even.
func (e *Engine) Step(r model.Ratings, m model.Match) (model.Ratings, int, int) {
	rawA, rawB := Deltas(r, m.Outcome(), e.k)
	da := int(math.RoundToEven(rawA))
	db := int(math.RoundToEven(rawB))
	return model.Ratings{RatingA: r.RatingA + da, RatingB: r.RatingB + db}, da, db
}

// Deltas returns the unrounded rating changes for A and B.
func Deltas(r model.Ratings, o model.Outcome, k float64) (float64, float64) {
	expectedA := Expected(r.RatingA, r.RatingB)
	expectedB := 1 - expectedA
	actualA, actualB := Actual(o)
	return k * (actualA - expectedA), k * (actualB - expectedB)
}

// Expected is the probability that a player rated a beats one rated b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Actual maps an outcome to the scores credited to A and B.
func Actual(o model.Outcome) (float64, float64) {
	switch o {
	case model.AWins:
		return 1, 0
	case model.BWins:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

// ComputeRatings folds matches with a throwaway Engine built from opts.
func ComputeRatings(matches []model.Match, opts ...Option) model.Ratings {
	return New(opts...).Compute(matches)
}

// History is ComputeRatings returning every intermediate point.
func History(matches []model.Match, opts ...Option) []model.RatingPoint {
	return New(opts...).History(matches)
}
