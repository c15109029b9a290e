package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Pipeline metrics
	AnalysisRequests prometheus.Counter
	AnalysisLatency  prometheus.Histogram
	AnalysisOutcomes *prometheus.CounterVec
	AnalysisErrors   *prometheus.CounterVec

	// Fallback metrics: one increment per candidate model attempt
	ModelAttempts *prometheus.CounterVec

	// Export metrics
	SessionExports prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		AnalysisRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emoticare_analysis_requests_total",
			Help: "Total number of analysis pipeline runs started",
		}),

		AnalysisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "emoticare_analysis_duration_seconds",
			Help:    "End-to-end pipeline latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120}, // a normal run makes 4 sequential model calls
		}),

		AnalysisOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "emoticare_analysis_outcomes_total",
			Help: "Total number of pipeline runs by terminal state",
		}, []string{"state"}), // success, safety_intervention, error

		AnalysisErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "emoticare_analysis_errors_total",
			Help: "Total number of pipeline errors by type",
		}, []string{"error_type"}),

		ModelAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "emoticare_model_attempts_total",
			Help: "Total number of candidate model attempts by model and result",
		}, []string{"model", "result"}), // result: "success" or "failure"

		SessionExports: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emoticare_session_exports_total",
			Help: "Total number of session export files written",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (may be nil in tests)
func GetMetrics() *Metrics {
	return globalMetrics
}
