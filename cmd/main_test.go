package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rivalry/internal/adapters/auth"
	"github.com/okian/rivalry/internal/adapters/http/live"
	app "github.com/okian/rivalry/internal/app"
	"github.com/okian/rivalry/internal/config"
	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func memoryConfig() *config.Config {
	cfg := config.New()
	cfg.Sports = config.DefaultSports()
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.Store.Driver = config.DriverMemory
	cfg.Store.DSN = ""
	cfg.Ratings.Driver = config.DriverMemory
	cfg.WorkerCount = 1
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("RIVALRY_ADDR", ":8080")
			_ = os.Setenv("RIVALRY_QUEUE_SIZE", "1000")
			_ = os.Setenv("RIVALRY_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("RIVALRY_ADDR")
				_ = os.Unsetenv("RIVALRY_QUEUE_SIZE")
				_ = os.Unsetenv("RIVALRY_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When converting configured sports", func() {
			sports := sportsFromConfig([]config.SportConfig{
				{Name: " Squash ", Mode: config.ModeWinCount},
				{Name: "Darts", Mode: config.ModeRawScore},
			})

			convey.Convey("Then names should be trimmed and modes kept", func() {
				convey.So(sports, convey.ShouldResemble, []model.SportConfig{
					{Name: "Squash", Mode: model.WinCount},
					{Name: "Darts", Mode: model.RawScore},
				})
			})
		})
	})
}

func TestOpenStores(t *testing.T) {
	convey.Convey("Given store configuration", t, func() {
		ctx := context.Background()

		convey.Convey("When the memory driver is selected", func() {
			set, err := openStores(ctx, memoryConfig())
			convey.So(err, convey.ShouldBeNil)
			defer set.Close(ctx)

			convey.Convey("Then ratings should live in their own memory store", func() {
				convey.So(set.main, convey.ShouldNotBeNil)
				convey.So(set.ratings, convey.ShouldNotBeNil)
				convey.So(set.ratings, convey.ShouldNotEqual, set.main)
			})
		})

		convey.Convey("When sqlite is selected with ratings in the same store", func() {
			cfg := memoryConfig()
			cfg.Store.Driver = config.DriverSQLite
			cfg.Store.DSN = filepath.Join(t.TempDir(), "rivalry.db")
			cfg.Ratings.Driver = "store"

			set, err := openStores(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer set.Close(ctx)

			convey.Convey("Then both roles should share the backend", func() {
				convey.So(set.ratings, convey.ShouldEqual, set.main)
				convey.So(set.ratings.UpsertRating(ctx, "Tennis", "T", 1010), convey.ShouldBeNil)
				got, err := set.main.Ratings(ctx, "Tennis")
				convey.So(err, convey.ShouldBeNil)
				convey.So(got["T"], convey.ShouldEqual, 1010)
			})
		})

		convey.Convey("When redis cannot be reached", func() {
			cfg := memoryConfig()
			cfg.Ratings.Driver = config.DriverRedis
			cfg.Ratings.RedisURL = "not a url"

			_, err := openStores(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := memoryConfig()
		cfg.Auth.Secret = "s3cret"
		cfg.Auth.AdminEmail = "admin@example.com"
		hub := live.NewHub()
		go hub.Run(ctx)
		svc := app.New(app.WithSports(sportsFromConfig(cfg.Sports)...), app.WithNotifier(hub))
		h := newHandler(ctx, cfg, svc, hub)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
			return w
		}

		convey.Convey("Then the API, docs and dashboard should all be routed", func() {
			convey.So(get("/api/v1/sports").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/").Body.String(), convey.ShouldContainSubstring, "sport-tabs")
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then /ws should refuse plain GETs", func() {
			convey.So(get("/ws").Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("Then admin tokens minted from the config should be accepted", func() {
			tok, err := auth.NewJWTAuthenticator(cfg.Auth.Secret, cfg.Auth.AdminEmail,
				auth.WithIssuer(cfg.Auth.Issuer)).Issue(cfg.Auth.AdminEmail)
			convey.So(err, convey.ShouldBeNil)

			req := httptest.NewRequest("GET", "/api/v1/whoami", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then without a secret admin routes should be disabled", func() {
			cfg.Auth.Secret = ""
			h := newHandler(ctx, cfg, svc, hub)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/whoami", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		cfg := memoryConfig()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When the context is canceled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.Convey("Then run should shut down cleanly", func() {
				convey.So(run(ctx, cfg, io.Discard), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the address cannot be bound", func() {
			cfg.Addr = "256.0.0.1:99999"
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := run(ctx, cfg, io.Discard)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(strings.Contains(err.Error(), "http server"), convey.ShouldBeTrue)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("When the system updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the service updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When updating once", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})
	})
}
