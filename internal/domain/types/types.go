// Package types contains response shapes shared by the service and its adapters.
package types

import (
	"time"

	"github.com/okian/rivalry/internal/domain/model"
)

// Player names one side of the rivalry.
type Player struct {
	Side  string `json:"side"` // "a" or "b"
	Label string `json:"label"`
}

// Summary is everything the dashboard shows for one sport.
type Summary struct {
	Sport         model.Sport          `json:"sport"`
	Mode          model.ScoringMode    `json:"mode"`
	PlayerA       string               `json:"player_a"`
	PlayerB       string               `json:"player_b"`
	CurrentSeason int                  `json:"current_season"`
	Matches       int                  `json:"matches"`
	Ratings       model.Ratings        `json:"ratings"`
	Stored        map[string]int       `json:"stored_ratings,omitempty"`
	Current       model.SeasonRecord   `json:"current"`
	AllTime       model.SeasonRecord   `json:"all_time"`
	Seasons       []model.SeasonRecord `json:"seasons"`
	SeasonWins    model.SeasonWins     `json:"season_wins"`
	LastMatchAt   *time.Time           `json:"last_match_at,omitempty"`
}

// MatchView is the JSON form of a match.
type MatchView struct {
	ID        string    `json:"id"`
	Sport     string    `json:"sport"`
	Season    int       `json:"season"`
	Date      string    `json:"date"` // YYYY-MM-DD
	ScoreA    int       `json:"score_a"`
	ScoreB    int       `json:"score_b"`
	Winner    string    `json:"winner"` // player label, empty on a draw
	CreatedAt time.Time `json:"created_at"`
}

// DateLayout is the wire format of match dates.
const DateLayout = "2006-01-02"

// NewMatchView converts m, naming the winner with the given labels.
func NewMatchView(m model.Match, playerA, playerB string) MatchView {
	v := MatchView{
		ID:        m.ID,
		Sport:     string(m.Sport),
		Season:    m.Season,
		Date:      m.Date.UTC().Format(DateLayout),
		ScoreA:    m.ScoreA,
		ScoreB:    m.ScoreB,
		CreatedAt: m.CreatedAt,
	}
	switch m.Outcome() {
	case model.AWins:
		v.Winner = playerA
	case model.BWins:
		v.Winner = playerB
	}
	return v
}
