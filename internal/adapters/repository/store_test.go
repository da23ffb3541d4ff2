package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rivalry/internal/adapters/repository"
	"github.com/okian/rivalry/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func newMatch(sport model.Sport, season, day, a, b int, created time.Duration) model.Match {
	return model.Match{
		ID:        uuid.NewString(),
		Sport:     sport,
		Season:    season,
		Date:      base.AddDate(0, 0, day),
		ScoreA:    a,
		ScoreB:    b,
		CreatedAt: base.Add(created).Truncate(time.Millisecond),
	}
}

// storeBehaviour runs the shared contract against any Store.
func storeBehaviour(t *testing.T, name string, open func() repository.Store) {
	ctx := context.Background()

	Convey("Given a "+name+" store", t, func() {
		s := open()
		defer func() { _ = s.Close() }()
		// unique sport names keep shared databases isolated between runs
		sport := model.Sport("Badminton " + uuid.NewString()[:8])
		other := model.Sport("Tennis " + uuid.NewString()[:8])

		Convey("When no season was ever stored", func() {
			_, err := s.CurrentSeason(ctx, sport)

			Convey("Then CurrentSeason reports not found", func() {
				So(err, ShouldEqual, repository.ErrNotFound)
			})

			Convey("And InitSeason persists season 1 once", func() {
				So(s.InitSeason(ctx, sport, 1), ShouldBeNil)
				So(s.InitSeason(ctx, sport, 5), ShouldBeNil)
				n, err := s.CurrentSeason(ctx, sport)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("And AdvanceSeason starts from season 1", func() {
				n, err := s.AdvanceSeason(ctx, sport)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When a season is advanced repeatedly", func() {
			So(s.InitSeason(ctx, sport, 1), ShouldBeNil)
			for i := 0; i < 3; i++ {
				_, err := s.AdvanceSeason(ctx, sport)
				So(err, ShouldBeNil)
			}

			Convey("Then the counter increases by one each time and other sports are untouched", func() {
				n, err := s.CurrentSeason(ctx, sport)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
				_, err = s.CurrentSeason(ctx, other)
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})

		Convey("When matches are inserted out of order", func() {
			late := newMatch(sport, 1, 3, 21, 19, 0)
			early := newMatch(sport, 1, 1, 15, 21, 5*time.Hour)
			sameDayFirst := newMatch(sport, 2, 2, 21, 10, time.Hour)
			sameDaySecond := newMatch(sport, 2, 2, 8, 21, 2*time.Hour)
			elsewhere := newMatch(other, 1, 1, 6, 4, 0)
			for _, m := range []model.Match{late, sameDaySecond, early, elsewhere, sameDayFirst} {
				So(s.InsertMatch(ctx, m), ShouldBeNil)
			}

			Convey("Then ListMatches returns them by date then creation time", func() {
				got, err := s.ListMatches(ctx, sport, 0)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 4)
				So(got[0].ID, ShouldEqual, early.ID)
				So(got[1].ID, ShouldEqual, sameDayFirst.ID)
				So(got[2].ID, ShouldEqual, sameDaySecond.ID)
				So(got[3].ID, ShouldEqual, late.ID)
				So(got[3].ScoreA, ShouldEqual, 21)
				So(got[3].Sport, ShouldEqual, sport)
				So(got[3].Date.Equal(late.Date), ShouldBeTrue)
				So(got[3].CreatedAt.Equal(late.CreatedAt), ShouldBeTrue)
			})

			Convey("Then a season filter narrows the list", func() {
				got, err := s.ListMatches(ctx, sport, 2)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, sameDayFirst.ID)
			})

			Convey("Then an unknown sport lists nothing", func() {
				got, err := s.ListMatches(ctx, "Curling", 0)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 0)
			})

			Convey("Then re-inserting an existing ID is a duplicate", func() {
				err := s.InsertMatch(ctx, late)
				So(err, ShouldEqual, repository.ErrDuplicate)
				got, _ := s.ListMatches(ctx, sport, 0)
				So(len(got), ShouldEqual, 4)
			})
		})

		Convey("When ratings are upserted", func() {
			So(s.UpsertRating(ctx, sport, "T", 1016), ShouldBeNil)
			So(s.UpsertRating(ctx, sport, "D", 984), ShouldBeNil)
			So(s.UpsertRating(ctx, sport, "T", 999), ShouldBeNil)

			Convey("Then the last write per player wins", func() {
				r, err := s.Ratings(ctx, sport)
				So(err, ShouldBeNil)
				So(r, ShouldResemble, map[string]int{"T": 999, "D": 984})
			})

			Convey("Then other sports have no ratings", func() {
				r, err := s.Ratings(ctx, other)
				So(err, ShouldBeNil)
				So(len(r), ShouldEqual, 0)
			})
		})

		Convey("When many goroutines insert concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = s.InsertMatch(ctx, newMatch(sport, 1, i%5, i, 20-i, time.Duration(i)*time.Minute))
				}(i)
			}
			wg.Wait()

			Convey("Then every match is listed", func() {
				got, err := s.ListMatches(ctx, sport, 1)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 20)
				for i := 1; i < len(got); i++ {
					So(got[i-1].Before(got[i]), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMemoryStore(t *testing.T) {
	storeBehaviour(t, "memory", func() repository.Store {
		return repository.NewMemoryStore()
	})

	Convey("Given a closed memory store", t, func() {
		s := repository.NewMemoryStore()
		So(s.Close(), ShouldBeNil)

		Convey("Then every call fails with ErrClosed", func() {
			_, err := s.ListMatches(context.Background(), "Tennis", 0)
			So(err, ShouldEqual, repository.ErrClosed)
			So(s.UpsertRating(context.Background(), "Tennis", "T", 1), ShouldEqual, repository.ErrClosed)
		})
	})

	Convey("Given a cancelled context", t, func() {
		s := repository.NewMemoryStore()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then the store returns the context error", func() {
			So(s.InsertMatch(ctx, model.Match{ID: "x"}), ShouldEqual, context.Canceled)
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	storeBehaviour(t, "sqlite", func() repository.Store {
		s, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "rivalry.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return s
	})

	Convey("Given an existing sqlite database", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "reopen.db")
		s, err := repository.OpenSQLite(ctx, path)
		So(err, ShouldBeNil)
		So(s.InsertMatch(ctx, newMatch("Tennis", 1, 0, 6, 3, 0)), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			s, err := repository.OpenSQLite(ctx, path)
			So(err, ShouldBeNil)
			defer func() { _ = s.Close() }()

			Convey("Then migrations are skipped and data survives", func() {
				got, err := s.ListMatches(ctx, "Tennis", 0)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
			})
		})
	})

	Convey("Given an in-memory sqlite database", t, func() {
		s, err := repository.OpenSQLite(context.Background(), ":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = s.Close() }()

		Convey("Then it serves reads and writes on one connection", func() {
			ctx := context.Background()
			So(s.InitSeason(ctx, "Tennis", 1), ShouldBeNil)
			n, err := s.AdvanceSeason(ctx, "Tennis")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})
	})

	Convey("Given an unknown driver", t, func() {
		_, err := repository.Open(context.Background(), "mongo", "x")
		So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
	})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RIVALRY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RIVALRY_TEST_POSTGRES_DSN not set")
	}
	storeBehaviour(t, "postgres", func() repository.Store {
		s, err := repository.OpenPostgres(context.Background(), dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		return s
	})
}
