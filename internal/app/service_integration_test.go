package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	service "github.com/okian/rivalry/internal/app"
	"github.com/okian/rivalry/internal/adapters/repository"
	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func waitForRatings(n *recordingNotifier, sport model.Sport, want model.Ratings) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := n.ratingsFor(sport); ok && r == want {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service over a sqlite store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "rivalry.db"))
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		notifier := newRecordingNotifier()
		svc := service.New(
			service.WithStore(store),
			service.WithNotifier(notifier),
			service.WithWorkerCount(1),
			service.WithQueueSize(100),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When matches are recorded", func() {
			_, _, err1 := svc.RecordMatch(ctx, "Ping Pong", service.MatchInput{ID: "p1", Date: day(1), ScoreA: 11, ScoreB: 5})
			_, _, err2 := svc.RecordMatch(ctx, "Ping Pong", service.MatchInput{ID: "p2", Date: day(2), ScoreA: 8, ScoreB: 11})
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)

			Convey("Then the workers should persist and announce the refreshed ratings", func() {
				want := model.Ratings{RatingA: 999, RatingB: 1001}
				So(waitForRatings(notifier, "Ping Pong", want), ShouldBeTrue)

				stored, err := store.Ratings(ctx, "Ping Pong")
				So(err, ShouldBeNil)
				So(stored, ShouldResemble, map[string]int{"T": 999, "D": 1001})
			})

			Convey("And a replay of a stored id should be a duplicate", func() {
				_, dup, err := svc.RecordMatch(ctx, "Ping Pong", service.MatchInput{ID: "p1", Date: day(1), ScoreA: 0, ScoreB: 11})
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
			})
		})

		Convey("When many matches are recorded concurrently", func() {
			const n = 40
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _, _ = svc.RecordMatch(ctx, "Badminton", service.MatchInput{
						ID:     fmt.Sprintf("b-%02d", i),
						Date:   day(1 + i%28),
						ScoreA: 21,
						ScoreB: i % 22,
					})
				}(i)
			}
			wg.Wait()

			Convey("Then the summary should agree with a replay of the log", func() {
				all, err := svc.Matches(ctx, "Badminton", 0)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, n)

				sum, err := svc.Summary(ctx, "Badminton")
				So(err, ShouldBeNil)
				So(sum.Matches, ShouldEqual, n)

				list, _ := store.ListMatches(ctx, "Badminton", 0)
				So(sum.Ratings, ShouldResemble, rating.ComputeRatings(list))
				So(waitForRatings(notifier, "Badminton", sum.Ratings), ShouldBeTrue)
			})
		})

		Convey("When the service restarts over the same store", func() {
			_, _, _ = svc.RecordMatch(ctx, "Tennis", service.MatchInput{ID: "t1", Date: day(1), ScoreA: 6, ScoreB: 2})
			_, _ = svc.AdvanceSeason(ctx, "Tennis")
			So(svc.Stop(ctx), ShouldBeNil)

			again := service.New(service.WithStore(store))

			Convey("Then seasons and matches should survive", func() {
				cur, err := again.CurrentSeason(ctx, "Tennis")
				So(err, ShouldBeNil)
				So(cur, ShouldEqual, 2)
				sum, err := again.Summary(ctx, "Tennis")
				So(err, ShouldBeNil)
				So(sum.SeasonWins, ShouldResemble, model.SeasonWins{WinsA: 1})
			})
		})
	})
}
