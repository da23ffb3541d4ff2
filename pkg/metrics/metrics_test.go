package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors should be registered", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)

				manager.matchesRecorded.WithLabelValues("Tennis").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("scores"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithRefreshInterval(3*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithMetricsEnabled(false),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 5, 10})

				manager.seasonsAdvanced.WithLabelValues("Tennis").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_scores_seasons_advanced_total")
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-time.Second),
				WithPrometheusRegistry(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "rivalry")
				So(manager.subsystem, ShouldEqual, "tracker")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("When recording domain metrics", func() {
			before := testutil.ToFloat64(globalManager.matchesRecorded.WithLabelValues("Ping Pong"))
			RecordMatchRecorded("Ping Pong")
			RecordMatchRecorded("Ping Pong")
			RecordSeasonAdvanced("Ping Pong", 4)
			UpdateRating("Ping Pong", "T", 1016)

			Convey("Then counters and gauges should reflect them", func() {
				So(testutil.ToFloat64(globalManager.matchesRecorded.WithLabelValues("Ping Pong")), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.currentSeason.WithLabelValues("Ping Pong")), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.currentRating.WithLabelValues("Ping Pong", "T")), ShouldEqual, 1016)
			})
		})

		Convey("When recording store operations", func() {
			before := testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("insert_match"))
			RecordStoreOperation("insert_match", 2.5, nil)
			RecordStoreOperation("insert_match", 3.5, errors.New("boom"))

			Convey("Then only failures should count as errors", func() {
				So(testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("insert_match")), ShouldEqual, before+1)
			})
		})

		Convey("When recording operational metrics", func() {
			So(func() {
				UpdateQueueSize(3)
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected("full")
				UpdateWorkerCount(2)
				RecordWorkerProcessingLatency(4)
				RecordWorkerError()
				UpdateLiveClients(1)
				RecordLiveBroadcast("match_recorded")
				RecordLiveDroppedSend()
				RecordRatingRefresh("Tennis", "ok", 1.2)
				RecordMatchDuplicate("Tennis")
				UpdateCurrentSeason("Tennis", 1)
				RecordHTTPRequest("/summary", "GET", "200")
				RecordHTTPRequestDuration("/summary", "GET", "200", 1)
				RecordErrorByEndpoint("/matches", "POST", "client_error")
				RecordErrorByComponent("worker", "refresh_failed")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
		})

		Convey("When the registry is gathered", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it should expose rivalry metrics", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestRecordersConcurrency(t *testing.T) {
	Convey("Given recorders used from many goroutines", t, func() {
		before := testutil.ToFloat64(globalManager.matchesRecorded.WithLabelValues("Badminton"))
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordMatchRecorded("Badminton")
					RecordHTTPRequest("/matches", "POST", "201")
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.matchesRecorded.WithLabelValues("Badminton")), ShouldEqual, before+1000)
	})
}
