// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the review scoring service.
var (
	// Counters.
	ReviewsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Total number of reviews written, by artifact type and whether the review is canonical",
		},
		[]string{"artifact_type", "canonical"},
	)

	AggregateRecomputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregate_recomputes_total",
			Help: "Total aggregate rubric recomputations",
		},
		[]string{"artifact_type", "status"},
	)

	AggregateCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregate_cache_requests_total",
			Help: "Aggregate rubric cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	// Histograms.
	AggregateRecomputeDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregate_recompute_duration_seconds",
			Help:    "Time taken to recompute one aggregate rubric",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"artifact_type"},
	)

	ProjectStatsDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "project_stats_duration_seconds",
			Help:    "Time taken to compute project statistics",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"scope"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"status"},
	)

	SchedulerAggregatesReconciled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_aggregates_reconciled",
			Help: "Number of aggregates recomputed by the last reconcile run",
		},
	)

	SchedulerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute the reconcile job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~128s
		},
	)
)

// RecordReviewSubmitted records a stored review.
func RecordReviewSubmitted(artifactType string, canonical bool) {
	ReviewsSubmittedTotal.WithLabelValues(artifactType, strconv.FormatBool(canonical)).Inc()
}

// RecordAggregateRecompute records a recompute outcome and its duration.
func RecordAggregateRecompute(artifactType, status string, seconds float64) {
	AggregateRecomputesTotal.WithLabelValues(artifactType, status).Inc()
	AggregateRecomputeDurationSeconds.WithLabelValues(artifactType).Observe(seconds)
}

// RecordAggregateCacheHit records a cache hit.
func RecordAggregateCacheHit() {
	AggregateCacheRequestsTotal.WithLabelValues("hit").Inc()
}

// RecordAggregateCacheMiss records a cache miss.
func RecordAggregateCacheMiss() {
	AggregateCacheRequestsTotal.WithLabelValues("miss").Inc()
}

// ObserveProjectStats observes a statistics computation, scope is "project" or "list".
func ObserveProjectStats(scope string, seconds float64) {
	ProjectStatsDurationSeconds.WithLabelValues(scope).Observe(seconds)
}

// RecordHTTPRequest records a handled request.
func RecordHTTPRequest(method, route string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(seconds)
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(status string) {
	SchedulerJobsRunTotal.WithLabelValues(status).Inc()
}

// SetSchedulerAggregatesReconciled sets the number of aggregates the last run recomputed.
func SetSchedulerAggregatesReconciled(count int) {
	SchedulerAggregatesReconciled.Set(float64(count))
}

// SetSchedulerLastRunTimestamp sets the timestamp of the last scheduler run.
func SetSchedulerLastRunTimestamp(timestamp float64) {
	SchedulerLastRunTimestamp.Set(timestamp)
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(seconds float64) {
	SchedulerJobDurationSeconds.Observe(seconds)
}
