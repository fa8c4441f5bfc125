package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for ExternalCalls.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
	OutcomeCached  = "cached"
)

var (
	ExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sov_external_calls_total",
			Help: "External search and inference calls by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	BudgetWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sov_budget_wait_seconds",
			Help:    "Time spent blocked on a per-minute rate budget",
			Buckets: []float64{0.5, 1, 5, 15, 30, 61},
		},
		[]string{"service"},
	)

	BudgetRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sov_budget_remaining_today",
			Help: "Calls left in the current daily budget",
		},
		[]string{"service"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sov_pipeline_duration_seconds",
			Help:    "End-to-end duration of analysis runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sov_pipeline_runs_total",
			Help: "Analysis runs by result",
		},
		[]string{"result"},
	)

	DocumentsRetrieved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sov_documents_retrieved_total",
			Help: "Unique documents returned by retrieval",
		},
	)

	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sov_fetch_requests_total",
			Help: "Page fetches by domain, status and block vendor",
		},
		[]string{"domain", "status", "blocked_by"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sov_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)
)

// RecordCall counts one external call.
func RecordCall(service, outcome string) {
	ExternalCalls.WithLabelValues(service, outcome).Inc()
}

// RecordWait observes a budget wait. Zero waits are not recorded.
func RecordWait(service string, d time.Duration) {
	if d <= 0 {
		return
	}
	BudgetWaitSeconds.WithLabelValues(service).Observe(d.Seconds())
}

// SetRemaining publishes the daily calls left for service.
func SetRemaining(service string, n int) {
	BudgetRemaining.WithLabelValues(service).Set(float64(n))
}

// RecordRun observes a finished pipeline run.
func RecordRun(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	PipelineRuns.WithLabelValues(result).Inc()
	PipelineDuration.Observe(d.Seconds())
}

// RecordFetch updates the fetch metrics. status 0 means a transport error.
func RecordFetch(domain string, status int, blockedBy string, d time.Duration) {
	statusStr := strconv.Itoa(status)
	if status == 0 {
		statusStr = "error"
	}
	FetchRequests.WithLabelValues(domain, statusStr, blockedBy).Inc()
	FetchDuration.WithLabelValues(domain).Observe(d.Seconds())
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
