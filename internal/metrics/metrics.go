// Package metrics provides Prometheus metrics for the dropout-risk scorer.
// It covers feature extraction, model training, prediction serving and
// assessment persistence, exposed via the standard metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the scorer.
type Metrics struct {
	// Prediction metrics
	Predictions        prometheus.Counter   // Total number of predictions made
	PredictionFailures prometheus.Counter   // Total number of failed predictions
	PredictionLatency  prometheus.Histogram // Prediction latency in seconds
	PredictionScores   prometheus.Histogram // Distribution of predicted risk percentages
	ModelAge           prometheus.Gauge     // Age of the loaded model bundle in seconds

	// Training metrics
	TrainingRuns     prometheus.Counter   // Total number of completed training runs
	TrainingDuration prometheus.Histogram // Training run duration in seconds

	// Feature extraction metrics
	ExtractionFallbacks prometheus.Counter   // Times a feature group degraded to defaults
	ExtractionDuration  prometheus.Histogram // Feature extraction duration in seconds

	// Persistence metrics
	AssessmentsStored prometheus.Counter // Total number of assessments persisted
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, keeping tests
// isolated from the global state.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "risk_predictions_total",
			Help: "Total number of risk predictions made",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "risk_prediction_failures_total",
			Help: "Total number of failed risk predictions",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_prediction_latency_seconds",
			Help:    "Risk prediction latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_prediction_scores",
			Help:    "Distribution of predicted risk percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "risk_model_age_seconds",
			Help: "Age of the loaded model bundle in seconds",
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "risk_training_runs_total",
			Help: "Total number of completed training runs",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_training_duration_seconds",
			Help:    "Training run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ExtractionFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_extraction_fallbacks_total",
			Help: "Times a feature group degraded to its defaults",
		}),
		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feature_extraction_duration_seconds",
			Help:    "Feature extraction duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		AssessmentsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "risk_assessments_stored_total",
			Help: "Total number of risk assessments persisted",
		}),
	}
}
