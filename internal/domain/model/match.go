// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Sport identifies a tracked sport, e.g. "Tennis".
type Sport string

// Slug is the URL form of the name: lower case, spaces dashed ("ping-pong").
func (s Sport) Slug() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(s))), " ", "-")
}

// ScoringMode decides how a sport's matches are totalled into seasons.
type ScoringMode string

const (
	// RawScore adds each match's raw scores to the season totals.
	RawScore ScoringMode = "raw_score"
	// WinCount adds one to the strict winner of each match.
	WinCount ScoringMode = "win_count"
)

// Valid reports whether m is a known scoring mode.
func (m ScoringMode) Valid() bool {
	return m == RawScore || m == WinCount
}

// SportConfig binds a sport to its scoring mode.
type SportConfig struct {
	Name Sport       `json:"name"`
	Mode ScoringMode `json:"mode"`
}

// Outcome of a single match from player A's point of view.
type Outcome int

const (
	Draw Outcome = iota
	AWins
	BWins
)

func (o Outcome) String() string {
	switch o {
	case AWins:
		return "a_wins"
	case BWins:
		return "b_wins"
	default:
		return "draw"
	}
}

// Match is one recorded contest between player A and player B.
type Match struct {
	ID        string    // uuid, unique per match
	Sport     Sport     // sport the match was played in
	Season    int       // season number, starts at 1
	Date      time.Time // calendar date, UTC midnight
	ScoreA    int       // non-negative
	ScoreB    int       // non-negative
	CreatedAt time.Time // insertion time, breaks same-date ordering ties
}

// Outcome compares scores strictly.
func (m Match) Outcome() Outcome {
	switch {
	case m.ScoreA > m.ScoreB:
		return AWins
	case m.ScoreA < m.ScoreB:
		return BWins
	default:
		return Draw
	}
}

// Before reports whether m is processed before other: by date, then
// creation time, then ID.
func (m Match) Before(other Match) bool {
	if !m.Date.Equal(other.Date) {
		return m.Date.Before(other.Date)
	}
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// SeasonRecord holds one season's totals. Derived, never persisted.
type SeasonRecord struct {
	Season int `json:"season"`
	TotalA int `json:"total_a"`
	TotalB int `json:"total_b"`
}

// SeasonWins counts seasons won outright by each side.
type SeasonWins struct {
	WinsA int `json:"wins_a"`
	WinsB int `json:"wins_b"`
}

// Ratings is the Elo pair for one sport.
type Ratings struct {
	RatingA int `json:"rating_a"`
	RatingB int `json:"rating_b"`
}

// RatingPoint is the rating pair right after a match.
type RatingPoint struct {
	MatchID string    `json:"match_id"`
	Date    time.Time `json:"date"`
	Season  int       `json:"season"`
	RatingA int       `json:"rating_a"`
	RatingB int       `json:"rating_b"`
	DeltaA  int       `json:"delta_a"`
	DeltaB  int       `json:"delta_b"`
}

// RefreshJob asks the background workers to recompute and persist a sport's ratings.
type RefreshJob struct {
	Sport       Sport
	Reason      string // e.g. "match_recorded", "season_advanced"
	RequestedAt time.Time
}
