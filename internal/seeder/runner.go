package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/rivalry/internal/domain/rating"
	"github.com/okian/rivalry/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrVerification means the server's summary disagrees with a local recomputation.
var ErrVerification = errors.New("verification failed")

// statsResponse is the slice of /stats the seeder needs.
type statsResponse struct {
	Elo struct {
		K       float64 `json:"k"`
		Initial int     `json:"initial"`
	} `json:"elo"`
}

// Run generates a history, submits it season by season and verifies the
// server's summaries.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	applyDefaults(config)

	logger.Get().Info(ctx, "starting rivalry seeding run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("seasons", config.Seasons),
		logger.Int("matchesPerSeason", config.MatchesPerSeason),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Any("seed", config.Seed),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config)

	// Step 1: Check service health and the admin token
	if err := checkService(ctx, client); err != nil {
		return stats, fmt.Errorf("service check failed: %w", err)
	}

	// Step 2: Discover sports and rating parameters
	sports, err := selectSports(ctx, client, config.Sports)
	if err != nil {
		return stats, fmt.Errorf("sport discovery failed: %w", err)
	}
	var st statsResponse
	if _, err := client.Get(ctx, "/stats", &st); err != nil {
		return stats, fmt.Errorf("stats failed: %w", err)
	}
	ratingOpts := []rating.Option{rating.WithK(st.Elo.K), rating.WithInitial(st.Elo.Initial)}

	// Step 3: Generate
	plans := generatePlans(ctx, config, sports, stats)

	// Step 4: Submit season by season, closing each one but the last
	for _, plan := range plans {
		for i, s := range plan.Seasons {
			submitSeason(ctx, config, client, plan.Sport, s.Matches, stats)
			if i == len(plan.Seasons)-1 {
				break
			}
			var adv seasonResponse
			if _, err := client.Post(ctx, sportPath(plan.Sport)+"/season/advance", nil, &adv); err != nil {
				return stats, fmt.Errorf("advance %s: %w", plan.Sport.Name, err)
			}
			stats.SeasonsAdvanced++
		}
	}
	if stats.MatchesFailed > 0 {
		return stats, fmt.Errorf("%d of %d matches failed to submit", stats.MatchesFailed, stats.MatchesSubmitted)
	}

	// Step 5: Verify
	for _, plan := range plans {
		if err := verifySport(ctx, client, plan, ratingOpts...); err != nil {
			return stats, fmt.Errorf("%w: %s: %w", ErrVerification, plan.Sport.Name, err)
		}
		stats.SportsVerified++
		logger.Get().Info(ctx, "sport verified", logger.String("sport", plan.Sport.Name))
	}

	// Step 6: Save the generated history
	if config.OutputFile != "" {
		if err := savePlans(ctx, config.OutputFile, plans); err != nil {
			logger.Get().Warn(ctx, "failed to save generated matches", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "seeding completed successfully")
	return stats, nil
}

func applyDefaults(config *Config) {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Seasons < 1 {
		config.Seasons = 1
	}
	if config.MatchesPerSeason < 1 {
		config.MatchesPerSeason = 1
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Start.IsZero() {
		config.Start = defaultStart()
	}
}

// checkService verifies the service is running and the token is the admin's.
func checkService(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")
	if _, err := client.Get(ctx, "/healthz", nil); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := client.Get(ctx, "/api/v1/whoami", nil); err != nil {
		return fmt.Errorf("admin token rejected: %w", err)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// selectSports returns the configured sports, narrowed to names when given.
func selectSports(ctx context.Context, client *HTTPClient, names []string) ([]Sport, error) {
	var resp sportsResponse
	if _, err := client.Get(ctx, "/api/v1/sports", &resp); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return resp.Sports, nil
	}
	var out []Sport
	for _, n := range names {
		n = strings.TrimSpace(n)
		found := false
		for _, s := range resp.Sports {
			if strings.EqualFold(s.Name, n) || strings.EqualFold(s.Slug, n) {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sport %q is not configured", n)
		}
	}
	return out, nil
}

// savePlans writes the generated history as JSON.
func savePlans(ctx context.Context, filename string, plans []Plan) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(plans, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal matches: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "generated matches saved", logger.String("filename", filename))
	return nil
}
