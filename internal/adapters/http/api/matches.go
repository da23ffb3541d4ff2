package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/rivalry/internal/app"
	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/types"
)

const maxMatchBodyBytes = 4 << 10

// MatchDependencies defines the match operations.
type MatchDependencies interface {
	Players() (string, string)
	CurrentSeason(ctx context.Context, sport model.Sport) (int, error)
	RecordMatch(ctx context.Context, sport model.Sport, in service.MatchInput) (model.Match, bool, error)
	Matches(ctx context.Context, sport model.Sport, season int) ([]model.Match, error)
}

// MatchesHandler handles the match routes.
type MatchesHandler struct {
	deps   MatchDependencies
	sports *sportResolver
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies, sports *sportResolver) *MatchesHandler {
	return &MatchesHandler{deps: deps, sports: sports}
}

// matchRequest mirrors the OpenAPI schema for POST .../matches.
type matchRequest struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	ScoreA *int   `json:"score_a"`
	ScoreB *int   `json:"score_b"`
}

func (m matchRequest) toInput() (service.MatchInput, error) {
	if m.ScoreA == nil || m.ScoreB == nil {
		return service.MatchInput{}, errors.New("score_a and score_b are required")
	}
	in := service.MatchInput{ID: strings.TrimSpace(m.ID), ScoreA: *m.ScoreA, ScoreB: *m.ScoreB}
	if d := strings.TrimSpace(m.Date); d != "" {
		t, err := time.Parse(types.DateLayout, d)
		if err != nil {
			return service.MatchInput{}, errors.New("invalid date; must be YYYY-MM-DD")
		}
		in.Date = t
	}
	return in, nil
}

type recordResponse struct {
	Status    string           `json:"status"`
	Duplicate bool             `json:"duplicate"`
	ID        string           `json:"id"`
	Match     *types.MatchView `json:"match,omitempty"`
}

type matchesResponse struct {
	Sport   model.Sport       `json:"sport"`
	Season  int               `json:"season"` // 0 means every season
	Matches []types.MatchView `json:"matches"`
}

// HandleRecord handles POST /api/v1/sports/{sport}/matches.
func (h *MatchesHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_match"
	sport, err := h.sports.resolve(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	var req matchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxMatchBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeFailure(w, r, wrapKind(op, ErrBadRequest, err))
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeFailure(w, r, wrapKind(op, ErrBadRequest, err))
		return
	}

	m, dup, err := h.deps.RecordMatch(r.Context(), sport, in)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, recordResponse{Status: "duplicate", Duplicate: true, ID: m.ID})
		return
	}
	a, b := h.deps.Players()
	view := types.NewMatchView(m, a, b)
	writeJSON(w, http.StatusCreated, recordResponse{Status: "recorded", ID: m.ID, Match: &view})
}

// HandleList handles GET /api/v1/sports/{sport}/matches. Without a season
// parameter the open season is listed; season=all or season=0 lists all.
func (h *MatchesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_matches"
	sport, err := h.sports.resolve(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	var season int
	switch q := strings.TrimSpace(r.URL.Query().Get("season")); q {
	case "":
		if season, err = h.deps.CurrentSeason(r.Context(), sport); err != nil {
			writeFailure(w, r, err)
			return
		}
	case "all":
		season = 0
	default:
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeFailure(w, r, wrapKind(op, ErrBadRequest, errors.New("season must be a non-negative integer or \"all\"")))
			return
		}
		season = n
	}

	list, err := h.deps.Matches(r.Context(), sport, season)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	a, b := h.deps.Players()
	resp := matchesResponse{Sport: sport, Season: season, Matches: make([]types.MatchView, 0, len(list))}
	for _, m := range list {
		resp.Matches = append(resp.Matches, types.NewMatchView(m, a, b))
	}
	writeJSON(w, http.StatusOK, resp)
}
