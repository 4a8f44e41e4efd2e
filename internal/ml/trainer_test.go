package ml

import (
	"context"
	"testing"
	"time"

	"edurisk/internal/features"
	"edurisk/internal/records"
	"edurisk/internal/records/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBundleStore records saved bundles in memory.
type fakeBundleStore struct {
	saved []*TrainedModelBundle
}

func (f *fakeBundleStore) Save(b *TrainedModelBundle) (string, error) {
	f.saved = append(f.saved, b)
	return b.Key(), nil
}

func (f *fakeBundleStore) Latest() (*TrainedModelBundle, error) {
	if len(f.saved) == 0 {
		return nil, ErrNoBundle
	}
	return f.saved[len(f.saved)-1], nil
}

// narrowGrids keeps test runs fast while still exercising the search.
func narrowGrids(t *Trainer) {
	t.ForestGrid = []ForestParams{{Trees: 5, MaxDepth: 3, MinSamplesSplit: 2, MinSamplesLeaf: 1}}
	t.LogisticGrid = []float64{1}
}

// riskPopulation builds six clearly struggling and six clearly fine students.
func riskPopulation() *memory.Store {
	store := memory.NewStore()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		id := int64(i + 1)
		store.AddStudent(records.Student{
			ID:                id,
			ClassID:           1,
			AcademicStatus:    records.StatusWarning,
			FamilyIncomeLevel: records.IncomeLow,
		})
		g := 3.0 + float64(i)*0.1
		store.AddGrade(records.Grade{StudentID: id, SubjectID: 1, GPA: &g})
		for d := 0; d < 5; d++ {
			status := records.AttendanceAbsent
			if d%2 == 0 {
				status = records.AttendancePresent
			}
			store.AddAttendance(records.AttendanceEntry{StudentID: id, Date: base.AddDate(0, 0, d), Status: status})
		}
	}
	for i := 0; i < 6; i++ {
		id := int64(i + 7)
		store.AddStudent(records.Student{
			ID:                id,
			ClassID:           1,
			AcademicStatus:    records.StatusGood,
			FamilyIncomeLevel: records.IncomeMedium,
		})
		g := 8.0 + float64(i)*0.1
		store.AddGrade(records.Grade{StudentID: id, SubjectID: 1, GPA: &g})
	}
	return store
}

func TestTrainEmptyPopulation(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	bundles := &fakeBundleStore{}
	trainer := NewTrainer(store, features.NewExtractor(store), bundles)
	narrowGrids(trainer)

	_, _, err := trainer.Train(context.Background())
	require.ErrorIs(t, err, ErrInsufficientData)
	assert.Empty(t, bundles.saved, "nothing must be persisted on a failed run")
}

func TestTrainSyntheticPopulation(t *testing.T) {
	t.Parallel()

	store := riskPopulation()
	bundles := &fakeBundleStore{}
	trainer := NewTrainer(store, features.NewExtractor(store), bundles)
	narrowGrids(trainer)

	report, bundle, err := trainer.Train(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	require.NotNil(t, bundle)

	assert.Equal(t, 12, report.Info.TotalSamples)
	assert.Equal(t, features.Count, report.Info.FeatureCount)
	assert.Equal(t, 6, report.Info.ClassBalance["high_risk"])
	assert.Equal(t, 6, report.Info.ClassBalance["low_risk"])
	assert.Equal(t, report.Info.TotalSamples, report.Info.TrainingSamples+report.Info.TestSamples)

	assert.Len(t, report.RandomForest.FeatureImportance, features.Count)
	assert.Len(t, report.LogisticRegression.Coefficients, features.Count)
	assert.Equal(t, 1.0, report.LogisticRegression.BestC)

	require.Len(t, bundles.saved, 1)
	assert.Equal(t, features.Names, bundle.FeatureNames)
	assert.False(t, bundle.CreatedAt.IsZero())
	require.NotNil(t, bundle.Scaler)
	assert.Len(t, bundle.Scaler.Mean, features.Count)
}

func TestTrainWithoutBundleStore(t *testing.T) {
	t.Parallel()

	store := riskPopulation()
	trainer := NewTrainer(store, features.NewExtractor(store), nil)
	narrowGrids(trainer)

	_, bundle, err := trainer.Train(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, bundle)
}

func TestTrainDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	store := riskPopulation()
	run := func() *TrainedModelBundle {
		trainer := NewTrainer(store, features.NewExtractor(store), nil)
		narrowGrids(trainer)
		trainer.Seed = 7
		_, bundle, err := trainer.Train(context.Background())
		require.NoError(t, err)
		return bundle
	}

	b1, b2 := run(), run()
	probe := make([]float64, features.Count)
	assert.Equal(t, b1.Forest.PredictProba(probe), b2.Forest.PredictProba(probe))
	assert.Equal(t, b1.Logistic.Weights, b2.Logistic.Weights)
}

func TestHighRiskLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		v    features.Vector
		want bool
	}{
		{"healthy", features.Vector{AttendanceRate: 95, AvgGPA: 7.5, SemesterCount: 1}, false},
		{"poor attendance", features.Vector{AttendanceRate: 70, AvgGPA: 7.5}, true},
		{"low gpa", features.Vector{AttendanceRate: 95, AvgGPA: 4.9}, true},
		{"many failures", features.Vector{AttendanceRate: 95, AvgGPA: 6.0, FailedSubjects: 3}, true},
		{"two failures ok", features.Vector{AttendanceRate: 95, AvgGPA: 6.0, FailedSubjects: 2}, false},
		{"severe violation", features.Vector{AttendanceRate: 95, AvgGPA: 6.0, SevereViolations: 1}, true},
		{"three moderate", features.Vector{AttendanceRate: 95, AvgGPA: 6.0, ModerateViolations: 3}, true},
		{"probation", features.Vector{AttendanceRate: 95, AvgGPA: 6.0, AcademicStatus: 2}, true},
		{"two dropped", features.Vector{AttendanceRate: 95, AvgGPA: 6.0, DroppedClasses: 2}, true},
		{"one dropped ok", features.Vector{AttendanceRate: 95, AvgGPA: 6.0, DroppedClasses: 1}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, highRiskLabel(tc.v), tc.name)
	}
}
