package seeder

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/types"
	"github.com/okian/rivalry/pkg/logger"
)

// Score shapes per scoring mode.
const (
	rallyTarget   = 11 // raw-score games are played to 11
	setTarget     = 6  // win-count matches look like a single set
	drawPercent   = 5  // chance of a level score, in percent
	favourPercent = 55 // how often player A wins a decided match, in percent
)

// generatePlans builds a deterministic multi-season history for each sport.
func generatePlans(ctx context.Context, config *Config, sports []Sport, stats *Stats) []Plan {
	rng := rand.New(rand.NewSource(config.Seed))
	plans := make([]Plan, 0, len(sports))

	for _, sp := range sports {
		plan := Plan{Sport: sp, Seasons: make([]Season, config.Seasons)}
		day := 0
		for s := 0; s < config.Seasons; s++ {
			matches := make([]MatchRequest, config.MatchesPerSeason)
			for i := range matches {
				a, b := score(rng, sp.Mode)
				matches[i] = MatchRequest{
					ID:     fmt.Sprintf("seed-%d-%s-s%d-%03d", config.Seed, sp.Slug, s+1, i),
					Date:   config.Start.AddDate(0, 0, day).Format(types.DateLayout),
					ScoreA: a,
					ScoreB: b,
				}
				// two matches per day keeps same-date ordering exercised
				if i%2 == 1 {
					day++
				}
			}
			plan.Seasons[s] = Season{Matches: matches}
			stats.MatchesGenerated += len(matches)
		}
		plans = append(plans, plan)
	}

	logger.Get().Info(ctx, "generated match history",
		logger.Int("sports", len(plans)),
		logger.Int("seasons", config.Seasons),
		logger.Int("matches", stats.MatchesGenerated),
	)
	return plans
}

// score draws one plausible result for the mode.
func score(rng *rand.Rand, mode model.ScoringMode) (int, int) {
	target := rallyTarget
	if mode == model.WinCount {
		target = setTarget
	}
	if rng.Intn(100) < drawPercent {
		n := rng.Intn(target)
		return n, n
	}
	loser := rng.Intn(target - 1)
	if rng.Intn(100) < favourPercent {
		return target, loser
	}
	return loser, target
}

// defaultStart anchors generated dates when none is configured.
func defaultStart() time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
}
