// Package season folds matches into per-season totals and season wins.
package season

import (
	"sort"

	"github.com/okian/rivalry/internal/domain/model"
)

type aggregateOptions struct {
	exclude    int
	hasExclude bool
}

// Option applies an aggregation option.
type Option func(*aggregateOptions)

// Excluding skips every match of season n, typically the still-open season.
func Excluding(n int) Option {
	return func(o *aggregateOptions) {
		o.exclude = n
		o.hasExclude = true
	}
}

// Aggregate groups matches by season and totals them according to mode.
// In raw-score mode the raw scores are summed; in win-count mode the strict
// winner of each match gets one point and a draw adds nothing.
// The result does not depend on the order of matches.
func Aggregate(matches []model.Match, mode model.ScoringMode, opts ...Option) map[int]model.SeasonRecord {
	var o aggregateOptions
	for _, opt := range opts {
		opt(&o)
	}

	out := make(map[int]model.SeasonRecord)
	for i := range matches {
		m := &matches[i]
		if o.hasExclude && m.Season == o.exclude {
			continue
		}
		rec := out[m.Season]
		rec.Season = m.Season
		switch mode {
		case model.WinCount:
			switch m.Outcome() {
			case model.AWins:
				rec.TotalA++
			case model.BWins:
				rec.TotalB++
			}
		default:
			rec.TotalA += m.ScoreA
			rec.TotalB += m.ScoreB
		}
		out[m.Season] = rec
	}
	return out
}

// CountWins counts the seasons each side won with a strictly greater total.
// Tied seasons count for neither side.
func CountWins(aggregate map[int]model.SeasonRecord) model.SeasonWins {
	var w model.SeasonWins
	for _, rec := range aggregate {
		switch {
		case rec.TotalA > rec.TotalB:
			w.WinsA++
		case rec.TotalB > rec.TotalA:
			w.WinsB++
		}
	}
	return w
}

// Totals sums every season into an all-time record with Season 0.
func Totals(aggregate map[int]model.SeasonRecord) model.SeasonRecord {
	var t model.SeasonRecord
	for _, rec := range aggregate {
		t.TotalA += rec.TotalA
		t.TotalB += rec.TotalB
	}
	return t
}

// Sorted returns the records ordered by season ascending.
func Sorted(aggregate map[int]model.SeasonRecord) []model.SeasonRecord {
	out := make([]model.SeasonRecord, 0, len(aggregate))
	for _, rec := range aggregate {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out
}
