package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/rivalry/internal/adapters/auth"
	"github.com/okian/rivalry/internal/config"
	"github.com/okian/rivalry/internal/seeder"
	"github.com/okian/rivalry/pkg/logger"
)

// Default configuration constants.
const (
	defaultSeasons  = 3
	defaultMatches  = 20
	defaultWorkers  = 4
	defaultTimeout  = 30 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		token      = flag.String("token", os.Getenv("RIVALRY_ADMIN_TOKEN"), "Admin bearer token (default: minted from config)")
		sports     = flag.String("sports", "", "Comma-separated sports to seed (default: all configured)")
		seasons    = flag.Int("seasons", defaultSeasons, "Seasons per sport")
		matches    = flag.Int("matches", defaultMatches, "Matches per season")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Generator seed")
		outputFile = flag.String("output", "", "Output file for the generated matches")
		logFile    = flag.String("log", "", "Log file for seeding output")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeder.ShowHelp(os.Stdout)
		return
	}

	closer, err := seeder.SetupLogging(*logFile, logger.FormatText)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	if *token == "" {
		*token, err = mintToken(ctx)
		if err != nil {
			_, _ = os.Stderr.WriteString("No admin token: " + err.Error() + "\n")
			os.Exit(1)
		}
	}

	cfg := &seeder.Config{
		BaseURL:          *baseURL,
		Token:            *token,
		Seasons:          *seasons,
		MatchesPerSeason: *matches,
		Workers:          *workers,
		Timeout:          *timeout,
		Seed:             *seed,
		OutputFile:       *outputFile,
		Verbose:          *verbose,
	}
	if *sports != "" {
		cfg.Sports = strings.Split(*sports, ",")
	}

	if _, err := seeder.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// mintToken signs an admin token with the server's own configured secret.
func mintToken(ctx context.Context) (string, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return "", err
	}
	a := auth.NewJWTAuthenticator(cfg.Auth.Secret, cfg.Auth.AdminEmail,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithTTL(cfg.Auth.TokenTTL),
	)
	return a.Issue(cfg.Auth.AdminEmail)
}
