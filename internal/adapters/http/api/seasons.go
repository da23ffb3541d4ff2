package api

import (
	"context"
	"net/http"

	"github.com/okian/rivalry/internal/domain/model"
)

// SeasonDependencies defines the season operations.
type SeasonDependencies interface {
	CurrentSeason(ctx context.Context, sport model.Sport) (int, error)
	AdvanceSeason(ctx context.Context, sport model.Sport) (int, error)
}

// SeasonsHandler handles the season routes.
type SeasonsHandler struct {
	deps   SeasonDependencies
	sports *sportResolver
}

// NewSeasonsHandler creates a new seasons handler.
func NewSeasonsHandler(deps SeasonDependencies, sports *sportResolver) *SeasonsHandler {
	return &SeasonsHandler{deps: deps, sports: sports}
}

type seasonResponse struct {
	Sport  model.Sport `json:"sport"`
	Season int         `json:"season"`
}

// HandleGet handles GET /api/v1/sports/{sport}/season.
func (h *SeasonsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sport, err := h.sports.resolve(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	n, err := h.deps.CurrentSeason(r.Context(), sport)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seasonResponse{Sport: sport, Season: n})
}

// HandleAdvance handles POST /api/v1/sports/{sport}/season/advance.
func (h *SeasonsHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	sport, err := h.sports.resolve(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	n, err := h.deps.AdvanceSeason(r.Context(), sport)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seasonResponse{Sport: sport, Season: n})
}
