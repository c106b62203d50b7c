package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricsOnce ensures metrics are registered only once
	metricsOnce sync.Once

	// reportsSubmittedTotal tracks intake outcomes by classifier verdict
	reportsSubmittedTotal *prometheus.CounterVec

	// publishAttemptsTotal tracks broker publish results
	publishAttemptsTotal *prometheus.CounterVec

	// consumeTotal tracks consumer-side message outcomes
	consumeTotal *prometheus.CounterVec

	// classifierDuration tracks latency of classifier calls
	classifierDuration prometheus.Histogram

	// classifierErrorsTotal tracks classifier failures by type
	classifierErrorsTotal *prometheus.CounterVec
)

// InitMetrics registers all Prometheus metrics for the threat pipeline.
// This should be called once at application startup.
func InitMetrics() {
	metricsOnce.Do(func() {
		reportsSubmittedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threat_reports_submitted_total",
				Help: "Total number of submitted threat reports by classifier verdict",
			},
			[]string{"verdict"},
		)

		publishAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threat_publish_attempts_total",
				Help: "Total number of broker publish attempts by status",
			},
			[]string{"status"},
		)

		consumeTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threat_consume_total",
				Help: "Total number of consumed topic messages by outcome",
			},
			[]string{"outcome"},
		)

		classifierDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "threat_classifier_duration_seconds",
				Help:    "Duration of classifier calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
			},
		)

		classifierErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threat_classifier_errors_total",
				Help: "Total number of classifier errors by error type",
			},
			[]string{"error_type"},
		)
	})
}

// RecordSubmission records an intake decision by verdict
// verdict: "phishing", "safe", "error"
func RecordSubmission(verdict string) {
	if reportsSubmittedTotal != nil {
		reportsSubmittedTotal.WithLabelValues(verdict).Inc()
	}
}

// RecordPublish records a broker publish attempt
// status: "ok", "retried", "failed"
func RecordPublish(status string) {
	if publishAttemptsTotal != nil {
		publishAttemptsTotal.WithLabelValues(status).Inc()
	}
}

// RecordConsume records a consumed message outcome
// outcome: "persisted", "duplicate", "parse_error", "dead_letter", "requeued"
func RecordConsume(outcome string) {
	if consumeTotal != nil {
		consumeTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordClassifierError records a classifier failure by type
// errorType: "timeout", "connection", "status", "parse", "circuit_open"
func RecordClassifierError(errorType string) {
	if classifierErrorsTotal != nil {
		classifierErrorsTotal.WithLabelValues(errorType).Inc()
	}
}

// ClassifierTimer is a helper for timing classifier calls
type ClassifierTimer struct {
	start time.Time
}

// StartClassifierTimer creates a new timer for measuring classifier latency
func StartClassifierTimer() *ClassifierTimer {
	return &ClassifierTimer{start: time.Now()}
}

// ObserveDuration records the elapsed time since the timer started
func (t *ClassifierTimer) ObserveDuration() {
	if t != nil && classifierDuration != nil {
		classifierDuration.Observe(time.Since(t.start).Seconds())
	}
}
