package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/rivalry/internal/domain/model"
	types "github.com/okian/rivalry/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewMatchView(t *testing.T) {
	Convey("Given a recorded match", t, func() {
		created := time.Date(2024, 6, 1, 18, 4, 0, 0, time.UTC)
		m := model.Match{
			ID:        "m-1",
			Sport:     "Ping Pong",
			Season:    3,
			Date:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			ScoreA:    11,
			ScoreB:    7,
			CreatedAt: created,
		}

		Convey("When converted to a view", func() {
			v := types.NewMatchView(m, "T", "D")

			Convey("Then it carries a date-only string and the winner label", func() {
				So(v.Date, ShouldEqual, "2024-06-01")
				So(v.Winner, ShouldEqual, "T")
				So(v.Sport, ShouldEqual, "Ping Pong")
				So(v.Season, ShouldEqual, 3)
			})

			Convey("Then it encodes with snake_case keys", func() {
				b, err := json.Marshal(v)
				So(err, ShouldBeNil)
				So(string(b), ShouldContainSubstring, `"score_a":11`)
				So(string(b), ShouldContainSubstring, `"winner":"T"`)
			})
		})

		Convey("When B wins or the match is drawn", func() {
			m.ScoreB = 13
			So(types.NewMatchView(m, "T", "D").Winner, ShouldEqual, "D")
			m.ScoreB = 11
			So(types.NewMatchView(m, "T", "D").Winner, ShouldEqual, "")
		})
	})
}

func TestSummaryJSON(t *testing.T) {
	Convey("Given a summary without stored ratings", t, func() {
		s := types.Summary{Sport: "Tennis", Mode: model.WinCount, Seasons: []model.SeasonRecord{}}

		Convey("Then optional fields are omitted", func() {
			b, err := json.Marshal(s)
			So(err, ShouldBeNil)
			So(string(b), ShouldNotContainSubstring, "stored_ratings")
			So(string(b), ShouldNotContainSubstring, "last_match_at")
			So(string(b), ShouldContainSubstring, `"mode":"win_count"`)
		})
	})
}
