// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and RIVALRY_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Scoring modes accepted in SportConfig.Mode.
const (
	ModeRawScore = "raw_score"
	ModeWinCount = "win_count"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the rating refresh queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rating refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the replay cache for submitted match IDs.
	DedupeSize int `koanf:"dedupe_size"`

	// PlayerA and PlayerB are the labels of the two rivals.
	PlayerA string `koanf:"player_a"`
	PlayerB string `koanf:"player_b"`

	// Sports lists the tracked sports and how their seasons are totalled.
	Sports []SportConfig `koanf:"sports"`

	Elo     EloConfig     `koanf:"elo"`
	Store   StoreConfig   `koanf:"store"`
	Ratings RatingsConfig `koanf:"ratings"`
	Auth    AuthConfig    `koanf:"auth"`
	CORS    CORSConfig    `koanf:"cors"`
}

// SportConfig declares one sport.
type SportConfig struct {
	Name string `koanf:"name"`
	// Mode is raw_score or win_count.
	Mode string `koanf:"mode"`
}

// EloConfig holds the rating engine parameters.
type EloConfig struct {
	K       float64 `koanf:"k"`
	Initial int     `koanf:"initial"`
}

// StoreConfig selects the match and season store.
type StoreConfig struct {
	// Driver is memory, sqlite or postgres.
	Driver string `koanf:"driver"`
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string `koanf:"dsn"`
}

// RatingsConfig selects where refreshed ratings are written.
type RatingsConfig struct {
	// Driver is store (same backend as matches), memory or redis.
	Driver   string `koanf:"driver"`
	RedisURL string `koanf:"redis_url"`
}

// AuthConfig configures admin token verification.
type AuthConfig struct {
	Secret     string        `koanf:"secret"`
	AdminEmail string        `koanf:"admin_email"`
	Issuer     string        `koanf:"issuer"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
}

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// DefaultSports mirrors the three sports the tracker started with.
func DefaultSports() []SportConfig {
	return []SportConfig{
		{Name: "Tennis", Mode: ModeWinCount},
		{Name: "Ping Pong", Mode: ModeRawScore},
		{Name: "Badminton", Mode: ModeRawScore},
	}
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":9080",
		QueueSize:   1_000,
		WorkerCount: runtime.NumCPU(),
		DedupeSize:  10_000,
		PlayerA:     "T",
		PlayerB:     "D",
		Elo: EloConfig{
			K:       32,
			Initial: 1000,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "rivalry.db",
		},
		Ratings: RatingsConfig{
			Driver: "store",
		},
		Auth: AuthConfig{
			Issuer:   "rivalry",
			TokenTTL: 12 * time.Hour,
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if len(c.Sports) == 0 {
		return fmt.Errorf("%w: at least one sport is required", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Sports))
	for _, s := range c.Sports {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("%w: sport name must not be empty", ErrInvalidConfig)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate sport %q", ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}
		if s.Mode != ModeRawScore && s.Mode != ModeWinCount {
			return fmt.Errorf("%w: sport %q has unknown mode %q", ErrInvalidConfig, name, s.Mode)
		}
	}
	if strings.TrimSpace(c.PlayerA) == "" || strings.TrimSpace(c.PlayerB) == "" {
		return fmt.Errorf("%w: player labels must not be empty", ErrInvalidConfig)
	}
	if c.PlayerA == c.PlayerB {
		return fmt.Errorf("%w: player labels must differ", ErrInvalidConfig)
	}
	if c.Elo.K <= 0 {
		return fmt.Errorf("%w: elo.k must be positive", ErrInvalidConfig)
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("%w: store.dsn is required for %s", ErrInvalidConfig, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	switch c.Ratings.Driver {
	case "store", DriverMemory:
	case DriverRedis:
		if strings.TrimSpace(c.Ratings.RedisURL) == "" {
			return fmt.Errorf("%w: ratings.redis_url is required for redis", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown ratings.driver %q", ErrInvalidConfig, c.Ratings.Driver)
	}
	return nil
}
