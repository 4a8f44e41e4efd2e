package metrics

import "time"

// Wrapper adapts Metrics to the narrow reporting interfaces the feature
// extractor, trainer and predictor consume, keeping those packages free of
// a direct Prometheus dependency.
type Wrapper struct {
	m *Metrics
}

// NewWrapper creates a Wrapper around m.
func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

// PredictionsInc counts a completed prediction.
func (w *Wrapper) PredictionsInc() { w.m.Predictions.Inc() }

// PredictionFailuresInc counts a failed prediction.
func (w *Wrapper) PredictionFailuresInc() { w.m.PredictionFailures.Inc() }

// PredictionLatencyObserve records a prediction latency in seconds.
func (w *Wrapper) PredictionLatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

// PredictionScoreObserve records a predicted risk percentage.
func (w *Wrapper) PredictionScoreObserve(score float64) {
	w.m.PredictionScores.Observe(score)
}

// ModelAgeSet records the age of the loaded model bundle in seconds.
func (w *Wrapper) ModelAgeSet(seconds float64) { w.m.ModelAge.Set(seconds) }

// AssessmentsStoredInc counts a persisted assessment.
func (w *Wrapper) AssessmentsStoredInc() { w.m.AssessmentsStored.Inc() }

// TrainingRunsInc counts a completed training run.
func (w *Wrapper) TrainingRunsInc() { w.m.TrainingRuns.Inc() }

// TrainingDurationObserve records a training run duration in seconds.
func (w *Wrapper) TrainingDurationObserve(seconds float64) {
	w.m.TrainingDuration.Observe(seconds)
}

// ExtractionFallbacksInc counts a feature group degrading to defaults.
func (w *Wrapper) ExtractionFallbacksInc() { w.m.ExtractionFallbacks.Inc() }

// ExtractionDuration records a feature extraction duration.
func (w *Wrapper) ExtractionDuration(d time.Duration) {
	w.m.ExtractionDuration.Observe(d.Seconds())
}
