package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts completed pipeline runs by terminal status.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of completed pipeline runs",
		},
		[]string{"template", "status"},
	)

	// RunsInFlight tracks the number of runs currently executing.
	RunsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_runs_in_flight",
			Help: "Number of pipeline runs currently executing",
		},
	)

	// StageDurationSeconds measures the duration of stage executions.
	StageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of stage executions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to ~164s
		},
		[]string{"stage"},
	)

	// StageResultsTotal counts stage results by outcome.
	StageResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_results_total",
			Help: "Total number of stage results by outcome",
		},
		[]string{"stage", "outcome"},
	)

	// ArtifactsActive tracks the number of non-expired artifacts.
	ArtifactsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_artifacts_active",
			Help: "Number of registered artifacts inside their retention window",
		},
	)

	// ArtifactsExpiredTotal counts artifacts flagged as expired.
	ArtifactsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_artifacts_expired_total",
			Help: "Total number of artifacts flagged as expired",
		},
	)

	// SweepDurationSeconds measures retention sweep durations.
	SweepDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_retention_sweep_duration_seconds",
			Help:    "Duration of artifact retention sweeps in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// Registry returns the prometheus registry with all engine collectors
// plus the standard Go and process collectors registered.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			RunsTotal,
			RunsInFlight,
			StageDurationSeconds,
			StageResultsTotal,
			ArtifactsActive,
			ArtifactsExpiredTotal,
			SweepDurationSeconds,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return registry
}

// Handler returns the HTTP handler exposing the engine registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// ObserveSweep records a retention sweep duration.
func ObserveSweep(d time.Duration) {
	SweepDurationSeconds.Observe(d.Seconds())
}
