package api

import (
	"net/http"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/types"
)

// SportsDependencies lists what the sports handler reads.
type SportsDependencies interface {
	Sports() []model.SportConfig
	Players() (string, string)
}

// SportsHandler handles GET /api/v1/sports.
type SportsHandler struct {
	deps SportsDependencies
}

// NewSportsHandler creates a new sports handler.
func NewSportsHandler(deps SportsDependencies) *SportsHandler {
	return &SportsHandler{deps: deps}
}

type sportView struct {
	Name model.Sport       `json:"name"`
	Slug string            `json:"slug"`
	Mode model.ScoringMode `json:"mode"`
}

type sportsResponse struct {
	Sports  []sportView    `json:"sports"`
	Players []types.Player `json:"players"`
}

// HandleList returns the configured sports and the two player labels.
func (h *SportsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	sports := h.deps.Sports()
	resp := sportsResponse{Sports: make([]sportView, 0, len(sports))}
	for _, sc := range sports {
		resp.Sports = append(resp.Sports, sportView{Name: sc.Name, Slug: Slug(sc.Name), Mode: sc.Mode})
	}
	a, b := h.deps.Players()
	resp.Players = []types.Player{{Side: "a", Label: a}, {Side: "b", Label: b}}
	writeJSON(w, http.StatusOK, resp)
}
