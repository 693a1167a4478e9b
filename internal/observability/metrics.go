package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	requestsTotal        *prometheus.CounterVec
	latencySeconds       *prometheus.HistogramVec
	errorsTotal          *prometheus.CounterVec
	taskRetriesTotal     *prometheus.CounterVec
	taskDeadLettersTotal *prometheus.CounterVec
	issuesMergedTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across
// the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_requests_total",
			Help: "Total number of grading API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_latency_seconds",
			Help:    "Latency distribution for grading API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_errors_total",
			Help: "Total number of error responses returned by grading endpoints.",
		}, []string{"method", "route", "status"})

		taskRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_task_retries_total",
			Help: "Total number of background task re-deliveries.",
		}, []string{"kind"})

		taskDeadLettersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_task_dead_letters_total",
			Help: "Total number of background tasks abandoned to the dead letter subject.",
		}, []string{"kind"})

		issuesMergedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_issues_merged_total",
			Help: "Total number of learning issues merged into student summaries.",
		}, []string{"outcome"})

		prometheus.MustRegister(requestsTotal, latencySeconds, errorsTotal,
			taskRetriesTotal, taskDeadLettersTotal, issuesMergedTotal)
	})
}

// Requests exposes the counter for grading API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for grading API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for grading API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// TaskRetries exposes the counter for background task re-deliveries.
func TaskRetries() *prometheus.CounterVec {
	RegisterMetrics()
	return taskRetriesTotal
}

// TaskDeadLetters exposes the counter for abandoned background tasks.
func TaskDeadLetters() *prometheus.CounterVec {
	RegisterMetrics()
	return taskDeadLettersTotal
}

// IssuesMerged exposes the counter for merged learning issues.
func IssuesMerged() *prometheus.CounterVec {
	RegisterMetrics()
	return issuesMergedTotal
}
