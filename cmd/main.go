package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/rivalry/internal/adapters/auth"
	"github.com/okian/rivalry/internal/adapters/http/api"
	"github.com/okian/rivalry/internal/adapters/http/live"
	"github.com/okian/rivalry/internal/adapters/http/site"
	"github.com/okian/rivalry/internal/adapters/http/swagger"
	"github.com/okian/rivalry/internal/adapters/repository"
	app "github.com/okian/rivalry/internal/app"
	"github.com/okian/rivalry/internal/config"
	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/pkg/logger"
	"github.com/okian/rivalry/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg, os.Stdout); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	if strings.EqualFold(cfg.LogFormat, string(logger.FormatJSON)) {
		if err := logger.InitWith(logOut, logger.FormatJSON); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)

	hub := live.NewHub(
		live.WithPlayers(cfg.PlayerA, cfg.PlayerB),
		live.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
	)
	go hub.Run(ctx)

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithMatchStore(stores.main),
		app.WithSeasonStore(stores.main),
		app.WithRatingStore(stores.ratings),
		app.WithSports(sportsFromConfig(cfg.Sports)...),
		app.WithPlayers(cfg.PlayerA, cfg.PlayerB),
		app.WithElo(cfg.Elo.K, cfg.Elo.Initial),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithNotifier(hub),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, hub),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.Store.Driver),
			logger.String("ratings", cfg.Ratings.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newHandler assembles the API, the live feed, the docs and the dashboard.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, hub *live.Hub) http.Handler {
	var opts []api.Option
	opts = append(opts, api.WithAllowedOrigins(cfg.CORS.AllowedOrigins))
	if cfg.Auth.Secret != "" {
		opts = append(opts, api.WithAuthenticator(auth.NewJWTAuthenticator(
			cfg.Auth.Secret,
			cfg.Auth.AdminEmail,
			auth.WithIssuer(cfg.Auth.Issuer),
			auth.WithTTL(cfg.Auth.TokenTTL),
		)))
	} else {
		logger.Get().Warn(ctx, "auth.secret is empty; admin routes are disabled")
	}
	opts = append(opts, api.WithMounts(
		func(ctx context.Context, r chi.Router) { r.Handle("/ws", hub.Handler(ctx)) },
		swagger.Register,
		site.Register,
	))
	return api.NewServer(svc, opts...).Handler(ctx)
}

// storeSet holds the backends selected by configuration.
type storeSet struct {
	main    repository.Store
	ratings repository.RatingStore
	closers []io.Closer
}

// Close releases every backend, ratings first.
func (s *storeSet) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			logger.Get().Warn(ctx, "closing store failed", logger.Error(err))
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*storeSet, error) {
	set := &storeSet{}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		set.main = repository.NewMemoryStore()
	default:
		st, err := repository.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
		}
		set.main = st
	}
	set.closers = append(set.closers, set.main)

	switch cfg.Ratings.Driver {
	case config.DriverMemory:
		set.ratings = repository.NewMemoryStore()
	case config.DriverRedis:
		rs, err := repository.NewRedisRatingStore(ctx, cfg.Ratings.RedisURL)
		if err != nil {
			set.Close(ctx)
			return nil, fmt.Errorf("open redis rating store: %w", err)
		}
		set.ratings = rs
		set.closers = append(set.closers, rs)
	default:
		set.ratings = set.main
	}
	return set, nil
}

func sportsFromConfig(in []config.SportConfig) []model.SportConfig {
	out := make([]model.SportConfig, 0, len(in))
	for _, s := range in {
		out = append(out, model.SportConfig{
			Name: model.Sport(strings.TrimSpace(s.Name)),
			Mode: model.ScoringMode(s.Mode),
		})
	}
	return out
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics copies service stats into gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
