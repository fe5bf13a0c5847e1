// Package metrics provides Prometheus metrics for the arena matchmaking service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pairing outcomes recorded by the matchmaker.
const (
	OutcomePaired          = "paired"
	OutcomeNotEnough       = "not_enough_players"
	OutcomeEvicted         = "evicted"
	OutcomeCreationFailed  = "creation_failed"
	OutcomePoolUnavailable = "pool_unavailable"
)

var pairingOutcomes = []string{
	OutcomePaired, OutcomeNotEnough, OutcomeEvicted, OutcomeCreationFailed, OutcomePoolUnavailable,
}

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Queue
	queueJoins  prometheus.Counter
	queueLeaves prometheus.Counter
	poolSize    prometheus.Gauge

	// Matchmaking
	pairingAttempts     *prometheus.CounterVec
	evictions           *prometheus.CounterVec
	matchesCreated      prometheus.Counter
	collaboratorLatency *prometheus.HistogramVec

	// Scheduler
	schedulerTicks        prometheus.Counter
	schedulerTickDuration prometheus.Histogram
	schedulerPairsPerTick prometheus.Histogram

	// Turns
	movesAccepted prometheus.Counter
	movesRejected *prometheus.CounterVec

	// Notifications
	notificationsPublished prometheus.Counter
	notificationsDropped   prometheus.Counter
	wsConnections          prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "arena",
		subsystem:        "matchmaking",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all collectors
	auto := promauto.With(m.registry)

	m.queueJoins = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_joins_total",
		Help: "Players newly added to the waiting pool",
	})
	m.queueLeaves = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_leaves_total",
		Help: "Players that left the waiting pool voluntarily",
	})
	m.poolSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "pool_size",
		Help: "Players currently waiting for an opponent",
	})

	m.pairingAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "pairing_attempts_total",
		Help: "Pairing attempts by outcome",
	}, []string{"outcome"})
	m.evictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "evictions_total",
		Help: "Players evicted from the pool by reason",
	}, []string{"reason"})
	m.matchesCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "matches_created_total",
		Help: "Matches created from paired players",
	})
	m.collaboratorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "collaborator_latency_milliseconds",
		Help:    "Latency of identity and match creation calls",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"collaborator"})

	m.schedulerTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scheduler_ticks_total",
		Help: "Matchmaking scheduler ticks executed",
	})
	m.schedulerTickDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "scheduler_tick_duration_milliseconds",
		Help:    "Wall time of a single scheduler tick",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
	m.schedulerPairsPerTick = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "scheduler_pairs_per_tick",
		Help:    "Matches created per scheduler tick",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
	})

	m.movesAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "turn",
		Name: "moves_accepted_total",
		Help: "Moves that passed validation and were stored",
	})
	m.movesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "turn",
		Name: "moves_rejected_total",
		Help: "Moves rejected by validation reason",
	}, []string{"reason"})

	m.notificationsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "notify",
		Name: "published_total",
		Help: "Notifications handed to a subscriber",
	})
	m.notificationsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "notify",
		Name: "dropped_total",
		Help: "Notifications dropped because nobody listened or the buffer was full",
	})
	m.wsConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "notify",
		Name: "websocket_connections",
		Help: "Open websocket subscriptions",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name:    "request_duration_milliseconds",
		Help:    "HTTP request latency",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "memory_bytes",
		Help: "Heap bytes allocated",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "goroutines",
		Help: "Number of goroutines",
	})
}

// RecordQueueJoin increments the join counter.
func RecordQueueJoin() { globalManager.queueJoins.Inc() }

// RecordQueueLeave increments the leave counter.
func RecordQueueLeave() { globalManager.queueLeaves.Inc() }

// UpdatePoolSize sets the waiting pool gauge.
func UpdatePoolSize(size int64) { globalManager.poolSize.Set(float64(size)) }

// RecordPairingAttempt counts one TryPairOnce call by outcome.
func RecordPairingAttempt(outcome string) error {
	for _, o := range pairingOutcomes {
		if o == outcome {
			globalManager.pairingAttempts.WithLabelValues(outcome).Inc()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownOutcome, outcome)
}

// RecordEviction counts a pool eviction.
func RecordEviction(reason string) { globalManager.evictions.WithLabelValues(reason).Inc() }

// RecordMatchCreated counts a created match.
func RecordMatchCreated() { globalManager.matchesCreated.Inc() }

// RecordCollaboratorLatency observes a downstream call.
func RecordCollaboratorLatency(collaborator string, latencyMs float64) {
	globalManager.collaboratorLatency.WithLabelValues(collaborator).Observe(latencyMs)
}

// RecordSchedulerTick records a finished tick.
func RecordSchedulerTick(durationMs float64, pairs int) {
	globalManager.schedulerTicks.Inc()
	globalManager.schedulerTickDuration.Observe(durationMs)
	globalManager.schedulerPairsPerTick.Observe(float64(pairs))
}

// RecordMoveAccepted counts an accepted move.
func RecordMoveAccepted() { globalManager.movesAccepted.Inc() }

// RecordMoveRejected counts a rejected move by reason.
func RecordMoveRejected(reason string) { globalManager.movesRejected.WithLabelValues(reason).Inc() }

// RecordNotificationPublished counts a delivered notification.
func RecordNotificationPublished() { globalManager.notificationsPublished.Inc() }

// RecordNotificationDropped counts a dropped notification.
func RecordNotificationDropped() { globalManager.notificationsDropped.Inc() }

// UpdateWebSocketConnections adds delta to the open websocket gauge.
func UpdateWebSocketConnections(delta int) { globalManager.wsConnections.Add(float64(delta)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom registry used for metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
