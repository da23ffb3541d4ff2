// Package metrics provides Prometheus metrics for the rivalry score tracker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Domain
	matchesRecorded  *prometheus.CounterVec
	matchesDuplicate *prometheus.CounterVec
	seasonsAdvanced  *prometheus.CounterVec
	ratingRefreshes  *prometheus.CounterVec
	ratingLatency    prometheus.Histogram
	currentRating    *prometheus.GaugeVec
	currentSeason    *prometheus.GaugeVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerLatency    prometheus.Histogram
	workerErrors     prometheus.Counter
	liveClients      prometheus.Gauge
	liveBroadcasts   *prometheus.CounterVec
	liveDroppedSends prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Collectors are registered on the
// configured registry (prometheus.DefaultRegisterer unless overridden).
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rivalry",
		subsystem:        "tracker",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval reports how often gauges fed from polling should update.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.matchesRecorded = m.counterVec("matches_recorded_total", "Matches recorded per sport", "sport")
	m.matchesDuplicate = m.counterVec("matches_duplicate_total", "Match submissions rejected as replays", "sport")
	m.seasonsAdvanced = m.counterVec("seasons_advanced_total", "Seasons closed by an administrator", "sport")
	m.ratingRefreshes = m.counterVec("rating_refreshes_total", "Full Elo recomputations by outcome", "sport", "outcome")
	m.ratingLatency = m.histogram("rating_refresh_milliseconds", "Latency of a full Elo recomputation including store I/O", m.histogramBuckets)
	m.currentRating = m.gaugeVec("rating", "Latest persisted Elo rating", "sport", "player")
	m.currentSeason = m.gaugeVec("current_season", "Current open season per sport", "sport")

	m.storeLatency = m.histogramVec("store_operation_milliseconds", "Store operation latency", "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation failures", "operation")

	m.queueSize = m.gauge("queue_size", "Pending rating refresh jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the rating refresh queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Rating refresh jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Rating refresh jobs dequeued")
	m.queueRejected = m.counterVec("queue_rejected_total", "Rating refresh jobs rejected", "reason")
	m.workerCount = m.gauge("worker_count", "Rating refresh workers")
	m.workerLatency = m.histogram("worker_processing_milliseconds", "Worker job processing latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Worker job failures")
	m.liveClients = m.gauge("live_clients", "Connected live dashboard clients")
	m.liveBroadcasts = m.counterVec("live_broadcasts_total", "Live messages broadcast by type", "type")
	m.liveDroppedSends = m.counter("live_dropped_sends_total", "Live messages dropped for slow clients")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint and type", "endpoint", "method", "error_type")
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordMatchRecorded increments the recorded matches counter.
func RecordMatchRecorded(sport string) {
	if globalManager.enabled {
		globalManager.matchesRecorded.WithLabelValues(sport).Inc()
	}
}

// RecordMatchDuplicate counts a replayed match submission.
func RecordMatchDuplicate(sport string) {
	if globalManager.enabled {
		globalManager.matchesDuplicate.WithLabelValues(sport).Inc()
	}
}

// RecordSeasonAdvanced counts a closed season and publishes the new one.
func RecordSeasonAdvanced(sport string, newSeason int) {
	if globalManager.enabled {
		globalManager.seasonsAdvanced.WithLabelValues(sport).Inc()
		globalManager.currentSeason.WithLabelValues(sport).Set(float64(newSeason))
	}
}

// UpdateCurrentSeason publishes the open season for sport.
func UpdateCurrentSeason(sport string, season int) {
	if globalManager.enabled {
		globalManager.currentSeason.WithLabelValues(sport).Set(float64(season))
	}
}

// RecordRatingRefresh records a recomputation outcome ("ok" or "error") and its latency.
func RecordRatingRefresh(sport, outcome string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.ratingRefreshes.WithLabelValues(sport, outcome).Inc()
		globalManager.ratingLatency.Observe(latencyMs)
	}
}

// UpdateRating publishes the persisted rating for a player.
func UpdateRating(sport, player string, rating int) {
	if globalManager.enabled {
		globalManager.currentRating.WithLabelValues(sport, player).Set(float64(rating))
	}
}

// RecordStoreOperation records latency of a store call and counts failures.
func RecordStoreOperation(operation string, latencyMs float64, err error) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
	if err != nil {
		globalManager.storeErrors.WithLabelValues(operation).Inc()
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueRejected counts a job that could not be enqueued.
func RecordQueueRejected(reason string) {
	if globalManager.enabled {
		globalManager.queueRejected.WithLabelValues(reason).Inc()
	}
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records how long one job took.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.workerLatency.Observe(latencyMs)
	}
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// UpdateLiveClients sets the number of connected live clients.
func UpdateLiveClients(count int) {
	if globalManager.enabled {
		globalManager.liveClients.Set(float64(count))
	}
}

// RecordLiveBroadcast counts a broadcast message by type.
func RecordLiveBroadcast(messageType string) {
	if globalManager.enabled {
		globalManager.liveBroadcasts.WithLabelValues(messageType).Inc()
	}
}

// RecordLiveDroppedSend counts a message dropped because a client was too slow.
func RecordLiveDroppedSend() {
	if globalManager.enabled {
		globalManager.liveDroppedSends.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorByComponent counts an internal error.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the package-level recorders.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
