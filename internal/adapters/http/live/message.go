package live

import "time"

// Server message types.
const (
	TypeMatchRecorded  = "match_recorded"
	TypeSeasonAdvanced = "season_advanced"
	TypeRatingsUpdated = "ratings_updated"
	TypePong           = "pong"
	TypeError          = "error"
)

// Client message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// Message is what the hub writes to dashboards.
type Message struct {
	Type      string    `json:"type"`
	Sport     string    `json:"sport,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is what dashboards may send. Sports narrows the feed; an
// empty list means every sport.
type ClientMessage struct {
	Type   string   `json:"type"`
	Sports []string `json:"sports,omitempty"`
}

// SeasonPayload accompanies season_advanced.
type SeasonPayload struct {
	Season int `json:"season"`
}

// ErrorPayload accompanies error.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
