package seeder

import (
	"time"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/types"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL          string        // Base URL of the service
	Token            string        // Admin bearer token
	Sports           []string      // Sports to seed; empty seeds every configured sport
	Seasons          int           // Seasons to generate per sport
	MatchesPerSeason int           // Matches per generated season
	Workers          int           // Concurrent submitters
	Timeout          time.Duration // HTTP request timeout
	Seed             int64         // Generator seed; equal seeds produce equal histories
	Start            time.Time     // Date of the first generated match
	OutputFile       string        // Optional JSON dump of the generated matches
	Verbose          bool          // Enable verbose logging
}

// Sport is one entry of GET /api/v1/sports.
type Sport struct {
	Name string            `json:"name"`
	Slug string            `json:"slug"`
	Mode model.ScoringMode `json:"mode"`
}

// MatchRequest is the body of POST .../matches.
type MatchRequest struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	ScoreA int    `json:"score_a"`
	ScoreB int    `json:"score_b"`
}

// Season groups the matches generated for one season.
type Season struct {
	Matches []MatchRequest `json:"matches"`
}

// Plan is the generated history of one sport.
type Plan struct {
	Sport   Sport    `json:"sport"`
	Seasons []Season `json:"seasons"`
}

// RecordResponse is the answer to a match submission.
type RecordResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	ID        string `json:"id"`
}

type sportsResponse struct {
	Sports []Sport `json:"sports"`
}

type seasonResponse struct {
	Sport  string `json:"sport"`
	Season int    `json:"season"`
}

type matchesResponse struct {
	Matches []types.MatchView `json:"matches"`
}

// Stats holds run statistics.
type Stats struct {
	MatchesGenerated  int
	MatchesSubmitted  int
	MatchesSuccessful int
	MatchesDuplicate  int
	MatchesFailed     int
	SeasonsAdvanced   int
	SportsVerified    int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
