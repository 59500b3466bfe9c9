// Package metrics exposes Prometheus instrumentation for the pipeline
// executor and worker pool: stage latency, worker concurrency, retries, and
// circuit breaker trips.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every gauge/histogram/counter the pipeline records,
// namespaced "travel_pipeline_".
type Metrics struct {
	inflightWorkers prometheus.Gauge
	queueDepth      prometheus.Gauge
	stageLatency    *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	circuitTrips    *prometheus.CounterVec
	dedupeRatio     *prometheus.GaugeVec

	enabled bool
}

// New registers all metrics with registry (prometheus.DefaultRegisterer if nil).
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,

		inflightWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "travel_pipeline",
			Name:      "inflight_workers",
			Help:      "Current number of stage-3 workers executing concurrently",
		}),

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "travel_pipeline",
			Name:      "worker_queue_depth",
			Help:      "Number of worker assignments waiting for a concurrency slot",
		}),

		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "travel_pipeline",
			Name:      "stage_latency_ms",
			Help:      "Stage execution duration in milliseconds",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000},
		}, []string{"run_id", "stage_id", "status"}),

		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel_pipeline",
			Name:      "worker_retries_total",
			Help:      "Cumulative worker retry attempts",
		}, []string{"run_id", "provider", "reason"}),

		circuitTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel_pipeline",
			Name:      "circuit_breaker_trips_total",
			Help:      "Circuit breaker state transitions to open",
		}, []string{"provider"}),

		dedupeRatio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "travel_pipeline",
			Name:      "dedupe_ratio",
			Help:      "Fraction of candidates removed by stage 5 clustering for the most recent run",
		}, []string{"run_id"}),
	}
}

func (m *Metrics) RecordStageLatency(runID, stageID string, latency time.Duration, status string) {
	if !m.enabled {
		return
	}
	m.stageLatency.WithLabelValues(runID, stageID, status).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) IncrementRetries(runID, provider, reason string) {
	if !m.enabled {
		return
	}
	m.retries.WithLabelValues(runID, provider, reason).Inc()
}

func (m *Metrics) IncrementCircuitTrip(provider string) {
	if !m.enabled {
		return
	}
	m.circuitTrips.WithLabelValues(provider).Inc()
}

func (m *Metrics) UpdateInflightWorkers(count int) {
	if !m.enabled {
		return
	}
	m.inflightWorkers.Set(float64(count))
}

func (m *Metrics) UpdateQueueDepth(depth int) {
	if !m.enabled {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) SetDedupeRatio(runID string, ratio float64) {
	if !m.enabled {
		return
	}
	m.dedupeRatio.WithLabelValues(runID).Set(ratio)
}

// Disable/Enable support test isolation, mirroring the rest of the pipeline's
// process-wide singletons (§9 Module-level caches).
func (m *Metrics) Disable() { m.enabled = false }
func (m *Metrics) Enable()  { m.enabled = true }
