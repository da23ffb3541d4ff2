package seeder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/rating"
	"github.com/okian/rivalry/internal/domain/season"
	"github.com/okian/rivalry/internal/domain/types"
	"github.com/okian/rivalry/pkg/logger"
)

// verifySport recomputes the summary from the server's own match log and
// checks every generated ID landed.
func verifySport(ctx context.Context, client *HTTPClient, plan Plan, opts ...rating.Option) error {
	var list matchesResponse
	if _, err := client.Get(ctx, sportPath(plan.Sport)+"/matches?season=all", &list); err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	// stored ratings trail the log until the background refresh lands
	var (
		sum    types.Summary
		getErr error
	)
	settled := waitFor(ctx, RefreshWait, func() bool {
		sum = types.Summary{}
		if _, getErr = client.Get(ctx, sportPath(plan.Sport)+"/summary", &sum); getErr != nil {
			return true
		}
		return sum.Stored[sum.PlayerA] == sum.Ratings.RatingA && sum.Stored[sum.PlayerB] == sum.Ratings.RatingB
	})
	if getErr != nil {
		return fmt.Errorf("summary: %w", getErr)
	}
	if !settled {
		return fmt.Errorf("stored ratings %v never caught up with %d/%d",
			sum.Stored, sum.Ratings.RatingA, sum.Ratings.RatingB)
	}

	matches, err := toMatches(list.Matches)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		present[m.ID] = struct{}{}
	}
	for _, s := range plan.Seasons {
		for _, m := range s.Matches {
			if _, ok := present[m.ID]; !ok {
				return fmt.Errorf("match %s missing from server", m.ID)
			}
		}
	}

	return compareSummary(sum, matches, plan.Sport.Mode, opts...)
}

// compareSummary checks sum against a local recomputation over matches.
func compareSummary(sum types.Summary, matches []model.Match, mode model.ScoringMode, opts ...rating.Option) error {
	if sum.Matches != len(matches) {
		return fmt.Errorf("summary counts %d matches, log has %d", sum.Matches, len(matches))
	}

	want := rating.ComputeRatings(matches, opts...)
	if sum.Ratings != want {
		return fmt.Errorf("ratings %d/%d, recomputed %d/%d",
			sum.Ratings.RatingA, sum.Ratings.RatingB, want.RatingA, want.RatingB)
	}

	agg := season.Aggregate(matches, mode)
	if all := season.Totals(agg); all.TotalA != sum.AllTime.TotalA || all.TotalB != sum.AllTime.TotalB {
		return fmt.Errorf("all-time totals %d/%d, recomputed %d/%d",
			sum.AllTime.TotalA, sum.AllTime.TotalB, all.TotalA, all.TotalB)
	}
	cur := agg[sum.CurrentSeason]
	if cur.TotalA != sum.Current.TotalA || cur.TotalB != sum.Current.TotalB {
		return fmt.Errorf("season %d totals %d/%d, recomputed %d/%d",
			sum.CurrentSeason, sum.Current.TotalA, sum.Current.TotalB, cur.TotalA, cur.TotalB)
	}
	wins := season.CountWins(season.Aggregate(matches, mode, season.Excluding(sum.CurrentSeason)))
	if wins != sum.SeasonWins {
		return fmt.Errorf("season wins %d/%d, recomputed %d/%d",
			sum.SeasonWins.WinsA, sum.SeasonWins.WinsB, wins.WinsA, wins.WinsB)
	}
	return nil
}

// toMatches rebuilds domain matches from their wire form in processing order.
func toMatches(views []types.MatchView) ([]model.Match, error) {
	out := make([]model.Match, 0, len(views))
	for _, v := range views {
		d, err := time.Parse(types.DateLayout, v.Date)
		if err != nil {
			return nil, fmt.Errorf("match %s: bad date %q: %w", v.ID, v.Date, err)
		}
		out = append(out, model.Match{
			ID:        v.ID,
			Sport:     model.Sport(v.Sport),
			Season:    v.Season,
			Date:      d,
			ScoreA:    v.ScoreA,
			ScoreB:    v.ScoreB,
			CreatedAt: v.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, matchesPerSecond float64
	if stats.MatchesSubmitted > 0 {
		successRate = float64(stats.MatchesSuccessful) / float64(stats.MatchesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesSuccessful", stats.MatchesSuccessful),
		logger.Int("matchesDuplicate", stats.MatchesDuplicate),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("seasonsAdvanced", stats.SeasonsAdvanced),
		logger.Int("sportsVerified", stats.SportsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}
