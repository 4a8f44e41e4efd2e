package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edurisk/internal/features"
	"edurisk/internal/records"

	"github.com/rs/zerolog/log"
)

// ErrInsufficientData indicates the population yielded no usable labeled
// samples. The training call fails; nothing is persisted and no retry is
// scheduled.
var ErrInsufficientData = errors.New("ml: no usable training samples")

const (
	testShare = 0.2
	cvFolds   = 3
	trainSeed = 42
)

// Default hyperparameter grids, searched with 3-fold cross-validated ROC-AUC.
var (
	DefaultForestGrid = buildForestGrid(
		[]int{100, 200}, // trees
		[]int{5, 10, 0}, // max depth, 0 = unlimited
		[]int{2, 5},     // min samples to split
		[]int{1, 2},     // min samples per leaf
	)
	DefaultLogisticGrid = []float64{0.1, 1, 10} // C
)

func buildForestGrid(trees, depths, splits, leaves []int) []ForestParams {
	var grid []ForestParams
	for _, t := range trees {
		for _, d := range depths {
			for _, s := range splits {
				for _, l := range leaves {
					grid = append(grid, ForestParams{Trees: t, MaxDepth: d, MinSamplesSplit: s, MinSamplesLeaf: l})
				}
			}
		}
	}
	return grid
}

// ForestReport summarizes the forest side of a training run.
type ForestReport struct {
	Accuracy          float64            `json:"accuracy"`
	ROCAUC            float64            `json:"roc_auc"`
	BestParams        ForestParams       `json:"best_params"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// LogisticReport summarizes the logistic side of a training run.
type LogisticReport struct {
	Accuracy     float64            `json:"accuracy"`
	ROCAUC       float64            `json:"roc_auc"`
	BestC        float64            `json:"best_c"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// TrainingInfo describes the dataset a run trained on.
type TrainingInfo struct {
	TotalSamples    int            `json:"total_samples"`
	TrainingSamples int            `json:"training_samples"`
	TestSamples     int            `json:"test_samples"`
	FeatureCount    int            `json:"feature_count"`
	ClassBalance    map[string]int `json:"class_balance"`
}

// TrainingReport is the outcome of one training run, evaluated on the
// held-out split.
type TrainingReport struct {
	RandomForest       ForestReport   `json:"random_forest"`
	LogisticRegression LogisticReport `json:"logistic_regression"`
	Info               TrainingInfo   `json:"training_info"`
}

// TrainerMetrics defines the metrics methods the trainer reports to.
type TrainerMetrics interface {
	TrainingRunsInc()
	TrainingDurationObserve(float64)
}

// Trainer builds labeled training data from the full student population,
// grid-searches both classifiers and persists the resulting bundle. Training
// is synchronous and CPU-bound; callers own any timeout or offload policy.
type Trainer struct {
	source    records.Source
	extractor *features.Extractor
	bundles   BundleStore
	metrics   TrainerMetrics

	// Grids default to the full search space; narrow them for faster runs.
	ForestGrid   []ForestParams
	LogisticGrid []float64
	Seed         int64
}

// NewTrainer creates a trainer with the default grids. bundles may be nil,
// in which case the trained bundle is returned but not persisted.
func NewTrainer(source records.Source, extractor *features.Extractor, bundles BundleStore) *Trainer {
	return &Trainer{
		source:       source,
		extractor:    extractor,
		bundles:      bundles,
		ForestGrid:   DefaultForestGrid,
		LogisticGrid: DefaultLogisticGrid,
		Seed:         trainSeed,
	}
}

// SetMetrics attaches a metrics sink.
func (t *Trainer) SetMetrics(m TrainerMetrics) { t.metrics = m }

// highRiskLabel is the fixed disjunctive labeling rule applied to every
// extracted vector when building the training set.
func highRiskLabel(v features.Vector) bool {
	return v.AttendanceRate < 75 ||
		v.AvgGPA < 5.0 ||
		v.FailedSubjects > 2 ||
		v.SevereViolations > 0 ||
		v.ModerateViolations > 2 ||
		v.AcademicStatus >= 2 ||
		v.DroppedClasses > 1
}

// buildDataset extracts one vector per student and labels it.
func (t *Trainer) buildDataset(ctx context.Context) (samples [][]float64, labels []int, err error) {
	ids, err := t.source.StudentIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list students: %w", err)
	}

	for _, id := range ids {
		v := t.extractor.Extract(ctx, id)
		samples = append(samples, v.Values())
		if highRiskLabel(v) {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}
	return samples, labels, nil
}

// Train runs a full training pass over the population and persists the
// resulting bundle. Returns ErrInsufficientData when the population yields
// zero samples; nothing is persisted in that case.
func (t *Trainer) Train(ctx context.Context) (*TrainingReport, *TrainedModelBundle, error) {
	start := time.Now()
	defer func() {
		if t.metrics != nil {
			t.metrics.TrainingDurationObserve(time.Since(start).Seconds())
		}
	}()

	samples, labels, err := t.buildDataset(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, ErrInsufficientData
	}

	positives := 0
	for _, y := range labels {
		positives += y
	}
	log.Info().
		Int("samples", len(samples)).
		Int("high_risk", positives).
		Int("features", features.Count).
		Msg("training dataset prepared")

	trainIdx, testIdx := stratifiedSplit(labels, testShare, t.Seed)
	trainX, trainY := gather(samples, labels, trainIdx)
	testX, testY := gather(samples, labels, testIdx)

	scaler, err := FitScaler(trainX)
	if err != nil {
		return nil, nil, err
	}
	trainX = scaler.TransformAll(trainX)
	testX = scaler.TransformAll(testX)

	forestParams := t.searchForest(trainX, trainY)
	forest := TrainForest(trainX, trainY, forestParams, t.Seed)

	bestC := t.searchLogistic(trainX, trainY)
	logistic := TrainLogistic(trainX, trainY, DefaultLogisticParams(bestC))

	report := &TrainingReport{
		RandomForest: ForestReport{
			BestParams:        forestParams,
			FeatureImportance: namedValues(forest.Importances),
		},
		LogisticRegression: LogisticReport{
			BestC:        bestC,
			Coefficients: namedValues(logistic.Weights),
		},
		Info: TrainingInfo{
			TotalSamples:    len(samples),
			TrainingSamples: len(trainIdx),
			TestSamples:     len(testIdx),
			FeatureCount:    features.Count,
			ClassBalance: map[string]int{
				"low_risk":  len(samples) - positives,
				"high_risk": positives,
			},
		},
	}

	if len(testY) > 0 {
		forestProbs := make([]float64, len(testX))
		logisticProbs := make([]float64, len(testX))
		for i, x := range testX {
			forestProbs[i] = forest.PredictProba(x)
			logisticProbs[i] = logistic.PredictProba(x)
		}
		report.RandomForest.Accuracy = accuracy(forestProbs, testY)
		report.RandomForest.ROCAUC = rocAUC(forestProbs, testY)
		report.LogisticRegression.Accuracy = accuracy(logisticProbs, testY)
		report.LogisticRegression.ROCAUC = rocAUC(logisticProbs, testY)
	}

	bundle := &TrainedModelBundle{
		Forest:       forest,
		Logistic:     logistic,
		Scaler:       scaler,
		FeatureNames: append([]string(nil), features.Names...),
		CreatedAt:    time.Now().UTC(),
	}

	if t.bundles != nil {
		key, err := t.bundles.Save(bundle)
		if err != nil {
			return nil, nil, fmt.Errorf("persist bundle: %w", err)
		}
		log.Info().
			Str("bundle", key).
			Float64("forest_auc", report.RandomForest.ROCAUC).
			Float64("logistic_auc", report.LogisticRegression.ROCAUC).
			Msg("model bundle persisted")
	}

	if t.metrics != nil {
		t.metrics.TrainingRunsInc()
	}
	return report, bundle, nil
}

// searchForest returns the grid point with the best mean cross-validated AUC.
func (t *Trainer) searchForest(samples [][]float64, labels []int) ForestParams {
	best := t.ForestGrid[0]
	bestScore := -1.0
	for _, params := range t.ForestGrid {
		score := t.crossValidate(samples, labels, func(x [][]float64, y []int) probModel {
			return TrainForest(x, y, params, t.Seed)
		})
		if score > bestScore {
			bestScore = score
			best = params
		}
	}
	log.Debug().Interface("params", best).Float64("cv_auc", bestScore).Msg("forest grid search complete")
	return best
}

// searchLogistic returns the regularization strength with the best mean
// cross-validated AUC.
func (t *Trainer) searchLogistic(samples [][]float64, labels []int) float64 {
	best := t.LogisticGrid[0]
	bestScore := -1.0
	for _, c := range t.LogisticGrid {
		score := t.crossValidate(samples, labels, func(x [][]float64, y []int) probModel {
			return TrainLogistic(x, y, DefaultLogisticParams(c))
		})
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	log.Debug().Float64("c", best).Float64("cv_auc", bestScore).Msg("logistic grid search complete")
	return best
}

type probModel interface {
	PredictProba(x []float64) float64
}

// crossValidate returns the mean held-out AUC over stratified folds.
func (t *Trainer) crossValidate(samples [][]float64, labels []int, fit func([][]float64, []int) probModel) float64 {
	folds := kFolds(labels, cvFolds, t.Seed)

	var sum float64
	used := 0
	for f, holdout := range folds {
		if len(holdout) == 0 {
			continue
		}
		var trainIdx []int
		for g, fold := range folds {
			if g != f {
				trainIdx = append(trainIdx, fold...)
			}
		}
		if len(trainIdx) == 0 {
			continue
		}
		trainX, trainY := gather(samples, labels, trainIdx)
		model := fit(trainX, trainY)

		probs := make([]float64, len(holdout))
		ys := make([]int, len(holdout))
		for k, i := range holdout {
			probs[k] = model.PredictProba(samples[i])
			ys[k] = labels[i]
		}
		sum += rocAUC(probs, ys)
		used++
	}
	if used == 0 {
		return 0.5
	}
	return sum / float64(used)
}

func namedValues(values []float64) map[string]float64 {
	m := make(map[string]float64, len(values))
	for i, name := range features.Names {
		if i < len(values) {
			m[name] = values[i]
		}
	}
	return m
}
