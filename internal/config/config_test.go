package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/rivalry/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.PlayerA, convey.ShouldEqual, "T")
			convey.So(cfg.PlayerB, convey.ShouldEqual, "D")
			convey.So(cfg.Elo.K, convey.ShouldEqual, 32)
			convey.So(cfg.Elo.Initial, convey.ShouldEqual, 1000)
			convey.So(cfg.Store.Driver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.Auth.TokenTTL, convey.ShouldEqual, 12*time.Hour)
		})

		convey.Convey("Then default sports should cover both scoring modes", func() {
			sports := config.DefaultSports()
			convey.So(len(sports), convey.ShouldEqual, 3)
			convey.So(sports[0], convey.ShouldResemble, config.SportConfig{Name: "Tennis", Mode: config.ModeWinCount})
			convey.So(sports[1].Mode, convey.ShouldEqual, config.ModeRawScore)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New()
		cfg.Sports = config.DefaultSports()
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("When the sports list is empty", func() {
			cfg.Sports = nil
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "at least one sport")
		})

		convey.Convey("When a sport has an unknown mode", func() {
			cfg.Sports = []config.SportConfig{{Name: "Squash", Mode: "sets"}}
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a sport is listed twice", func() {
			cfg.Sports = append(cfg.Sports, config.SportConfig{Name: "Tennis", Mode: config.ModeRawScore})
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "duplicate sport")
		})

		convey.Convey("When both players share a label", func() {
			cfg.PlayerB = cfg.PlayerA
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "must differ")
		})

		convey.Convey("When k is not positive", func() {
			cfg.Elo.K = 0
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "elo.k")
		})

		convey.Convey("When the store driver is unknown", func() {
			cfg.Store.Driver = "mongo"
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "store.driver")
		})

		convey.Convey("When postgres is selected without a dsn", func() {
			cfg.Store.Driver = config.DriverPostgres
			cfg.Store.DSN = ""
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "store.dsn")
		})

		convey.Convey("When redis ratings have no url", func() {
			cfg.Ratings.Driver = config.DriverRedis
			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "redis_url")
		})

		convey.Convey("When the memory driver is selected", func() {
			cfg.Store.Driver = config.DriverMemory
			cfg.Store.DSN = ""
			cfg.Ratings.Driver = config.DriverMemory
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
