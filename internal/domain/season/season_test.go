package season_test

import (
	"math/rand"
	"testing"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/season"
	. "github.com/smartystreets/goconvey/convey"
)

func m(s, a, b int) model.Match {
	return model.Match{Season: s, ScoreA: a, ScoreB: b}
}

func TestAggregate(t *testing.T) {
	Convey("Given matches of a raw-score sport", t, func() {
		matches := []model.Match{m(1, 3, 1), m(1, 0, 2), m(2, 5, 5)}

		Convey("When aggregated without exclusion", func() {
			agg := season.Aggregate(matches, model.RawScore)

			Convey("Then both seasons are tied", func() {
				So(agg, ShouldResemble, map[int]model.SeasonRecord{
					1: {Season: 1, TotalA: 3, TotalB: 3},
					2: {Season: 2, TotalA: 5, TotalB: 5},
				})
				So(season.CountWins(agg), ShouldResemble, model.SeasonWins{WinsA: 0, WinsB: 0})
			})
		})

		Convey("When the open season is excluded", func() {
			agg := season.Aggregate(matches, model.RawScore, season.Excluding(2))

			Convey("Then only season 1 remains", func() {
				So(len(agg), ShouldEqual, 1)
				So(agg[1], ShouldResemble, model.SeasonRecord{Season: 1, TotalA: 3, TotalB: 3})
			})
		})

		Convey("When excluding a season that has no matches", func() {
			agg := season.Aggregate(matches, model.RawScore, season.Excluding(7))
			So(len(agg), ShouldEqual, 2)
		})

		Convey("When there are no matches", func() {
			agg := season.Aggregate(nil, model.RawScore)
			So(agg, ShouldNotBeNil)
			So(len(agg), ShouldEqual, 0)
			So(season.CountWins(agg), ShouldResemble, model.SeasonWins{})
		})
	})

	Convey("Given matches of a win-count sport", t, func() {
		matches := []model.Match{m(1, 6, 4), m(1, 3, 6), m(1, 7, 5), m(2, 2, 2), m(2, 1, 6)}

		Convey("When aggregated", func() {
			agg := season.Aggregate(matches, model.WinCount)

			Convey("Then each strict winner scores one and draws score nothing", func() {
				So(agg[1], ShouldResemble, model.SeasonRecord{Season: 1, TotalA: 2, TotalB: 1})
				So(agg[2], ShouldResemble, model.SeasonRecord{Season: 2, TotalA: 0, TotalB: 1})
				So(season.CountWins(agg), ShouldResemble, model.SeasonWins{WinsA: 1, WinsB: 1})
			})
		})
	})

	Convey("Given a shuffled copy of the same matches", t, func() {
		var matches []model.Match
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 200; i++ {
			matches = append(matches, m(1+rng.Intn(5), rng.Intn(22), rng.Intn(22)))
		}
		shuffled := append([]model.Match(nil), matches...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		Convey("Then the aggregate is identical in both modes", func() {
			So(season.Aggregate(shuffled, model.RawScore), ShouldResemble, season.Aggregate(matches, model.RawScore))
			So(season.Aggregate(shuffled, model.WinCount), ShouldResemble, season.Aggregate(matches, model.WinCount))
		})
	})
}

func TestCountWins(t *testing.T) {
	Convey("Given an aggregate with a tied season", t, func() {
		agg := map[int]model.SeasonRecord{
			1: {Season: 1, TotalA: 10, TotalB: 4},
			2: {Season: 2, TotalA: 8, TotalB: 8},
			3: {Season: 3, TotalA: 1, TotalB: 9},
			4: {Season: 4, TotalA: 0, TotalB: 0},
		}

		Convey("Then the tied seasons count for neither side", func() {
			w := season.CountWins(agg)
			So(w, ShouldResemble, model.SeasonWins{WinsA: 1, WinsB: 1})
			So(w.WinsA+w.WinsB, ShouldBeLessThan, len(agg))
		})

		Convey("Then totals and ordering are derived from all seasons", func() {
			So(season.Totals(agg), ShouldResemble, model.SeasonRecord{TotalA: 19, TotalB: 21})
			sorted := season.Sorted(agg)
			So(len(sorted), ShouldEqual, 4)
			for i, rec := range sorted {
				So(rec.Season, ShouldEqual, i+1)
			}
		})
	})
}
