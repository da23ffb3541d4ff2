package api

import (
	"context"
	"net/http"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/types"
)

// SummaryDependencies defines the read-side aggregate operations.
type SummaryDependencies interface {
	Summary(ctx context.Context, sport model.Sport) (types.Summary, error)
	RatingHistory(ctx context.Context, sport model.Sport) ([]model.RatingPoint, error)
}

// SummaryHandler handles the summary and rating history routes.
type SummaryHandler struct {
	deps   SummaryDependencies
	sports *sportResolver
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies, sports *sportResolver) *SummaryHandler {
	return &SummaryHandler{deps: deps, sports: sports}
}

type historyResponse struct {
	Sport  model.Sport         `json:"sport"`
	Points []model.RatingPoint `json:"points"`
}

// HandleSummary handles GET /api/v1/sports/{sport}/summary.
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sport, err := h.sports.resolve(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	sum, err := h.deps.Summary(r.Context(), sport)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleHistory handles GET /api/v1/sports/{sport}/ratings/history.
func (h *SummaryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sport, err := h.sports.resolve(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	points, err := h.deps.RatingHistory(r.Context(), sport)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Sport: sport, Points: points})
}
