package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker pool metrics
var (
	// JobsProcessed counts finished jobs by asset kind and outcome
	// (completed, error, skipped, panic).
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "archivist",
			Name:      "jobs_processed_total",
			Help:      "Total number of processing jobs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// JobDuration tracks wall time of a full asset pipeline.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "archivist",
			Name:      "job_duration_seconds",
			Help:      "Time taken to run an asset pipeline",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"kind"},
	)

	// ActiveJobs tracks the number of jobs currently held by workers.
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "archivist",
			Name:      "active_jobs",
			Help:      "Number of jobs currently running",
		},
	)

	// QueueDepth tracks jobs accepted but not yet picked up.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "archivist",
			Name:      "queue_depth",
			Help:      "Number of jobs waiting for a worker",
		},
	)

	// CancelledAssets counts assets force-failed by the stuck sweep or a bulk cancel.
	CancelledAssets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "archivist",
			Name:      "cancelled_assets_total",
			Help:      "Assets moved from processing to error by cancellation sweeps",
		},
		[]string{"reason"},
	)
)

// Stage metrics
var (
	// StageDuration tracks each pipeline step.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "archivist",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time taken by a single pipeline step",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800},
		},
		[]string{"kind", "step"},
	)

	// StageFailures counts failures by ledger stage tag.
	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "archivist",
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Pipeline step failures by stage tag",
		},
		[]string{"stage"},
	)
)

// Encoder and reconciler metrics
var (
	// EncoderTier exposes the selected encoder tier as a 1-valued gauge.
	EncoderTier = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "archivist",
			Subsystem: "encoder",
			Name:      "selected_tier",
			Help:      "Encoder tier chosen at startup (1 for the active tier)",
		},
		[]string{"tier", "encoder"},
	)

	// EncoderProbes counts tier probe outcomes.
	EncoderProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "archivist",
			Subsystem: "encoder",
			Name:      "tier_probes_total",
			Help:      "Encoder tier probe results",
		},
		[]string{"tier", "result"},
	)

	// ReconcileMatches counts reconciler outcomes by tier (or "unmatched").
	ReconcileMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "archivist",
			Subsystem: "reconcile",
			Name:      "matches_total",
			Help:      "Source file reconciliation results by match tier",
		},
		[]string{"tier"},
	)
)

// ObserveJob records the outcome and duration of one asset job.
func ObserveJob(kind, outcome string, duration time.Duration) {
	JobsProcessed.WithLabelValues(kind, outcome).Inc()
	if outcome != "skipped" {
		JobDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// ObserveStage records a pipeline step duration.
func ObserveStage(kind, step string, duration time.Duration) {
	StageDuration.WithLabelValues(kind, step).Observe(duration.Seconds())
}

// SetEncoderTier marks tier as the active encoder.
func SetEncoderTier(tier, encoder string) {
	EncoderTier.Reset()
	EncoderTier.WithLabelValues(tier, encoder).Set(1)
}
