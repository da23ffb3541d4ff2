package seeder

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/rivalry/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger on stdout, teeing into logFile when set.
func SetupLogging(logFile string, format logger.Format) (io.Closer, error) {
	if logFile == "" {
		if err := logger.InitWith(os.Stdout, format); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWith(io.MultiWriter(os.Stdout, file), format); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Rivalry Match Seeder
====================

Generates a multi-season match history, submits it to a running server,
closes every season but the last and checks each sport's summary against
a local recomputation of ratings and season totals.

Usage:
  go run ./cmd/seed-matches [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -token string
        Admin bearer token (default $RIVALRY_ADMIN_TOKEN, or minted from config)
  -sports string
        Comma-separated sports to seed (default: all configured)
  -seasons int
        Seasons per sport (default 3)
  -matches int
        Matches per season (default 20)
  -workers int
        Concurrent submitters (default 4)
  -seed int
        Generator seed (default: current time)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write the generated matches to this JSON file
  -log string
        Also write log output to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed every sport with a token minted from RIVALRY_AUTH__SECRET
  go run ./cmd/seed-matches

  # Seed one sport deterministically
  go run ./cmd/seed-matches -sports ping-pong -seed 42 -seasons 5
`)
}
