// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	service "github.com/okian/rivalry/internal/app"
	"github.com/okian/rivalry/internal/adapters/auth"
	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/types"
	"github.com/okian/rivalry/pkg/logger"
)

const requestTimeout = 30 * time.Second

// Dependencies required by HTTP handlers. The service implements it.
type Dependencies interface {
	StatsProvider

	Sports() []model.SportConfig
	Players() (string, string)

	CurrentSeason(ctx context.Context, sport model.Sport) (int, error)
	AdvanceSeason(ctx context.Context, sport model.Sport) (int, error)

	RecordMatch(ctx context.Context, sport model.Sport, in service.MatchInput) (model.Match, bool, error)
	Matches(ctx context.Context, sport model.Sport, season int) ([]model.Match, error)

	Summary(ctx context.Context, sport model.Sport) (types.Summary, error)
	RatingHistory(ctx context.Context, sport model.Sport) ([]model.RatingPoint, error)
}

// Mount attaches extra routes, such as the docs site or the live feed.
type Mount func(ctx context.Context, r chi.Router)

// Server wires HTTP routes for the business API.
type Server struct {
	deps    Dependencies
	auth    auth.Authenticator
	origins []string
	mounts  []Mount

	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	sportsHandler  *SportsHandler
	seasonsHandler *SeasonsHandler
	matchesHandler *MatchesHandler
	summaryHandler *SummaryHandler

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	sports := newSportResolver(deps)
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.sportsHandler = NewSportsHandler(deps)
	s.seasonsHandler = NewSeasonsHandler(deps, sports)
	s.matchesHandler = NewMatchesHandler(deps, sports)
	s.summaryHandler = NewSummaryHandler(deps, sports)
	return s
}

// Handler builds the router.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))
		r.Use(requestLogger(s.logger))

		r.Get("/sports", MetricsMiddleware(s.sportsHandler.HandleList, "sports"))
		r.Route("/sports/{sport}", func(r chi.Router) {
			r.Get("/season", MetricsMiddleware(s.seasonsHandler.HandleGet, "season"))
			r.Get("/matches", MetricsMiddleware(s.matchesHandler.HandleList, "matches"))
			r.Get("/summary", MetricsMiddleware(s.summaryHandler.HandleSummary, "summary"))
			r.Get("/ratings/history", MetricsMiddleware(s.summaryHandler.HandleHistory, "ratings_history"))

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin(s.auth))
				r.Post("/season/advance", MetricsMiddleware(s.seasonsHandler.HandleAdvance, "season_advance"))
				r.Post("/matches", MetricsMiddleware(s.matchesHandler.HandleRecord, "matches_record"))
			})
		})

		r.With(requireAdmin(s.auth)).Get("/whoami", MetricsMiddleware(handleWhoAmI, "whoami"))
	})

	for _, m := range s.mounts {
		m(ctx, r)
	}
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes it. Server errors are logged and
// their detail is not echoed back.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// sportResolver maps the {sport} path segment onto a configured sport. It
// accepts the exact name, any casing of it, or a dashed slug ("ping-pong").
type sportResolver struct {
	byKey map[string]model.Sport
}

func newSportResolver(deps Dependencies) *sportResolver {
	sr := &sportResolver{byKey: make(map[string]model.Sport)}
	for _, sc := range deps.Sports() {
		sr.byKey[string(sc.Name)] = sc.Name
		sr.byKey[strings.ToLower(string(sc.Name))] = sc.Name
		sr.byKey[Slug(sc.Name)] = sc.Name
	}
	return sr
}

func (sr *sportResolver) resolve(r *http.Request) (model.Sport, error) {
	raw := chi.URLParam(r, "sport")
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	raw = strings.TrimSpace(raw)
	if s, ok := sr.byKey[raw]; ok {
		return s, nil
	}
	if s, ok := sr.byKey[strings.ToLower(raw)]; ok {
		return s, nil
	}
	return "", wrapKind("api.resolve_sport", ErrUnknownSport, nil)
}

// Slug is the URL form of a sport name.
func Slug(s model.Sport) string {
	return s.Slug()
}
