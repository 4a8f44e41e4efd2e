package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"edurisk/internal/features"
	"edurisk/internal/records"
	"edurisk/internal/risk"

	"github.com/rs/zerolog/log"
)

// Ensemble combination weights: forest 60%, logistic 40%.
const (
	forestWeight   = 0.6
	logisticWeight = 0.4
)

// ErrModelUnavailable indicates no bundle exists and training could not
// produce one. Prediction returns this instead of a fabricated score; callers
// must treat it as "prediction unavailable", not as zero risk.
var ErrModelUnavailable = errors.New("ml: model unavailable")

// MetricsInterface defines the metrics methods the predictor reports to.
type MetricsInterface interface {
	PredictionsInc()
	PredictionFailuresInc()
	PredictionLatencyObserve(float64)
	PredictionScoreObserve(float64)
	ModelAgeSet(float64)
	AssessmentsStoredInc()
}

// Predictor scores students through the trained ensemble. The loaded bundle
// is explicit state guarded by a read-write mutex; bundles themselves are
// immutable once persisted, so concurrent readers never race a writer of the
// same bundle. Two concurrent trainings may each persist a bundle; the most
// recent by timestamp wins on the next load.
type Predictor struct {
	source      records.Source
	extractor   *features.Extractor
	trainer     *Trainer
	bundles     BundleStore
	assessments records.AssessmentStore
	metrics     MetricsInterface

	// TrainOnDemand controls whether Predict falls back to synchronous
	// training when no bundle exists. The caller absorbs the latency cliff;
	// disable it to fail fast with ErrModelUnavailable and call EnsureModel
	// separately.
	TrainOnDemand bool

	mu     sync.RWMutex
	bundle *TrainedModelBundle
}

// NewPredictor creates an ensemble predictor. assessments may be nil to skip
// persistence; bundles may be nil for a purely in-memory lifecycle.
func NewPredictor(source records.Source, extractor *features.Extractor, trainer *Trainer, bundles BundleStore, assessments records.AssessmentStore) *Predictor {
	return &Predictor{
		source:        source,
		extractor:     extractor,
		trainer:       trainer,
		bundles:       bundles,
		assessments:   assessments,
		TrainOnDemand: true,
	}
}

// SetMetrics attaches a metrics sink.
func (p *Predictor) SetMetrics(m MetricsInterface) { p.metrics = m }

// UseBundle loads an explicit bundle, replacing whatever was loaded before.
func (p *Predictor) UseBundle(b *TrainedModelBundle) {
	p.mu.Lock()
	p.bundle = b
	p.mu.Unlock()
}

// EnsureModel makes sure a bundle is loaded: the already-loaded one, the most
// recent persisted one, or a freshly trained one when TrainOnDemand allows
// it. Safe to call ahead of Predict to keep training latency off the read
// path.
func (p *Predictor) EnsureModel(ctx context.Context) error {
	p.mu.RLock()
	loaded := p.bundle != nil
	p.mu.RUnlock()
	if loaded {
		return nil
	}

	if p.bundles != nil {
		b, err := p.bundles.Latest()
		if err == nil {
			p.adopt(b)
			return nil
		}
		if !errors.Is(err, ErrNoBundle) {
			return fmt.Errorf("load latest bundle: %w", err)
		}
	}

	if !p.TrainOnDemand || p.trainer == nil {
		return ErrModelUnavailable
	}

	log.Info().Msg("no trained model available, training synchronously")
	_, b, err := p.trainer.Train(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	p.adopt(b)
	return nil
}

func (p *Predictor) adopt(b *TrainedModelBundle) {
	p.mu.Lock()
	p.bundle = b
	p.mu.Unlock()
	if p.metrics != nil && !b.CreatedAt.IsZero() {
		p.metrics.ModelAgeSet(time.Since(b.CreatedAt).Seconds())
	}
}

// Predict scores one student. With useEnsemble the two model probabilities
// combine 0.6/0.4; otherwise the forest probability stands alone. The
// resulting assessment is appended best-effort: a persistence failure is
// logged and the computed result still returned with an empty AssessmentID.
// Unknown students propagate records.ErrStudentNotFound.
func (p *Predictor) Predict(ctx context.Context, studentID int64, useEnsemble bool) (*risk.Result, error) {
	start := time.Now()
	res, err := p.predict(ctx, studentID, useEnsemble)
	if p.metrics != nil {
		p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
		if err != nil {
			p.metrics.PredictionFailuresInc()
		} else {
			p.metrics.PredictionsInc()
			p.metrics.PredictionScoreObserve(res.RiskPercentage)
		}
	}
	return res, err
}

func (p *Predictor) predict(ctx context.Context, studentID int64, useEnsemble bool) (*risk.Result, error) {
	if _, err := p.source.Student(ctx, studentID); err != nil {
		return nil, fmt.Errorf("predict student %d: %w", studentID, err)
	}

	if err := p.EnsureModel(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	bundle := p.bundle
	p.mu.RUnlock()

	v := p.extractor.Extract(ctx, studentID)
	scaled := bundle.Scaler.Transform(v.Values())
	if err := validateSample(scaled); err != nil {
		return nil, fmt.Errorf("predict student %d: %w", studentID, err)
	}

	forestProb := bundle.Forest.PredictProba(scaled)
	logisticProb := bundle.Logistic.PredictProba(scaled)
	ensembleProb := combine(forestProb, logisticProb, useEnsemble)

	pct := ensembleProb * 100
	flags := analyzeRiskFactors(v)

	res := &risk.Result{
		StudentID:      studentID,
		RiskPercentage: pct,
		RiskLevel:      risk.Level(pct),
		RiskFactors:    flags,
		PredictionDetails: &risk.PredictionDetails{
			RandomForest:       vote(forestProb),
			LogisticRegression: vote(logisticProb),
			Ensemble:           vote(ensembleProb),
		},
		FeatureAnalysis: featureAnalysis(v, bundle.Forest.Importances),
		Recommendations: risk.Recommendations(flags),
		AnalysisDate:    time.Now().UTC(),
	}

	if p.assessments != nil {
		stored, err := p.assessments.Record(ctx, studentID, pct, flags)
		if err != nil {
			log.Warn().Err(err).Int64("student_id", studentID).Msg("failed to persist risk assessment")
		} else {
			res.AssessmentID = stored.ID
			res.AnalysisDate = stored.AnalysisDate
			if p.metrics != nil {
				p.metrics.AssessmentsStoredInc()
			}
		}
	}

	return res, nil
}

// PredictAll scores the whole population, skipping students that cannot be
// scored and logging each failure.
func (p *Predictor) PredictAll(ctx context.Context, useEnsemble bool) ([]*risk.Result, error) {
	ids, err := p.source.StudentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	results := make([]*risk.Result, 0, len(ids))
	for _, id := range ids {
		res, err := p.Predict(ctx, id, useEnsemble)
		if err != nil {
			log.Warn().Err(err).Int64("student_id", id).Msg("prediction failed, skipping student")
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// combine mixes the two model probabilities with the fixed ensemble weights,
// or passes the forest probability through when the ensemble is disabled.
func combine(forestProb, logisticProb float64, useEnsemble bool) float64 {
	if !useEnsemble {
		return forestProb
	}
	return forestWeight*forestProb + logisticWeight*logisticProb
}

func vote(prob float64) risk.ModelVote {
	prediction := "Low Risk"
	if prob > 0.5 {
		prediction = "High Risk"
	}
	return risk.ModelVote{Probability: prob * 100, Prediction: prediction}
}

// analyzeRiskFactors reports the scored predicate set plus the explainer-only
// declining_performance flag, all computed from the raw feature values rather
// than model internals.
func analyzeRiskFactors(v features.Vector) map[string]bool {
	flags := risk.Evaluate(v)
	flags[risk.FactorDecliningTrend] = risk.DecliningPerformance(v)
	return flags
}

// featureAnalysis pairs every feature's raw value with the forest importance
// and a short interpretation.
func featureAnalysis(v features.Vector, importances []float64) map[string]risk.FeatureInsight {
	values := v.Values()
	analysis := make(map[string]risk.FeatureInsight, features.Count)
	for i, name := range features.Names {
		importance := 0.0
		if i < len(importances) {
			importance = importances[i]
		}
		analysis[name] = risk.FeatureInsight{
			Value:          values[i],
			Importance:     importance,
			Interpretation: interpretFeature(name, values[i]),
		}
	}
	return analysis
}

func interpretFeature(name string, value float64) string {
	switch name {
	case "attendance_rate":
		label := "Poor"
		if value >= 90 {
			label = "Good"
		} else if value >= 80 {
			label = "Fair"
		}
		return fmt.Sprintf("Attendance rate %.1f%% (%s)", value, label)
	case "avg_gpa":
		label := "Weak"
		if value >= 8.5 {
			label = "Excellent"
		} else if value >= 7.0 {
			label = "Good"
		} else if value >= 6.0 {
			label = "Average"
		}
		return fmt.Sprintf("Average GPA %.2f (%s)", value, label)
	case "failed_subjects":
		label := "Normal"
		if value > 0 {
			label = "Needs attention"
		}
		return fmt.Sprintf("%d failed subjects (%s)", int(value), label)
	case "severe_violations":
		label := "Safe"
		if value > 0 {
			label = "At risk"
		}
		return fmt.Sprintf("%d severe violations (%s)", int(value), label)
	case "academic_status":
		label := "Good standing"
		switch int(value) {
		case 1:
			label = "Warning"
		case 2:
			label = "Probation"
		case 3:
			label = "Suspended"
		}
		return fmt.Sprintf("Academic status level %d (%s)", int(value), label)
	default:
		return fmt.Sprintf("Value: %g", value)
	}
}

func validateSample(x []float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feature %d is not finite", i)
		}
	}
	return nil
}

// PerformanceReport is the cross-validated view of the loaded bundle over the
// current population.
type PerformanceReport struct {
	ForestCVAUCMean      float64            `json:"forest_cv_auc_mean"`
	LogisticCVAUCMean    float64            `json:"logistic_cv_auc_mean"`
	RankedImportance     []FeatureWeight    `json:"ranked_importance"`
	LogisticCoefficients map[string]float64 `json:"logistic_coefficients"`
	TotalSamples         int                `json:"total_samples"`
	FeatureCount         int                `json:"feature_count"`
	ClassBalance         map[string]int     `json:"class_balance"`
}

// FeatureWeight is one feature's importance in ranked order.
type FeatureWeight struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// ModelPerformance re-evaluates the loaded bundle's hyperparameters against
// the current population with 3-fold cross-validation. Requires a loaded or
// loadable bundle and a trainer to rebuild the dataset; without a trainer it
// returns ErrModelUnavailable.
func (p *Predictor) ModelPerformance(ctx context.Context) (*PerformanceReport, error) {
	if p.trainer == nil {
		return nil, ErrModelUnavailable
	}
	if err := p.EnsureModel(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	bundle := p.bundle
	p.mu.RUnlock()

	samples, labels, err := p.trainer.buildDataset(ctx)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrInsufficientData
	}
	scaled := bundle.Scaler.TransformAll(samples)

	forestAUC := p.trainer.crossValidate(scaled, labels, func(x [][]float64, y []int) probModel {
		return TrainForest(x, y, bundle.Forest.Params, p.trainer.Seed)
	})
	logisticAUC := p.trainer.crossValidate(scaled, labels, func(x [][]float64, y []int) probModel {
		return TrainLogistic(x, y, bundle.Logistic.Params)
	})

	ranked := make([]FeatureWeight, 0, features.Count)
	for i, name := range bundle.FeatureNames {
		if i < len(bundle.Forest.Importances) {
			ranked = append(ranked, FeatureWeight{Name: name, Importance: bundle.Forest.Importances[i]})
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Importance > ranked[j].Importance })

	positives := 0
	for _, y := range labels {
		positives += y
	}

	return &PerformanceReport{
		ForestCVAUCMean:      forestAUC,
		LogisticCVAUCMean:    logisticAUC,
		RankedImportance:     ranked,
		LogisticCoefficients: namedValues(bundle.Logistic.Weights),
		TotalSamples:         len(samples),
		FeatureCount:         features.Count,
		ClassBalance: map[string]int{
			"low_risk":  len(labels) - positives,
			"high_risk": positives,
		},
	}, nil
}
