package ml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBundle(created time.Time) *TrainedModelBundle {
	samples := [][]float64{{-1, 0}, {1, 0}, {-2, 1}, {2, 1}}
	labels := []int{0, 1, 0, 1}
	scaler, _ := FitScaler(samples)
	return &TrainedModelBundle{
		Forest:       TrainForest(samples, labels, ForestParams{Trees: 3, MaxDepth: 2, MinSamplesSplit: 2, MinSamplesLeaf: 1}, 1),
		Logistic:     TrainLogistic(samples, labels, DefaultLogisticParams(1)),
		Scaler:       scaler,
		FeatureNames: []string{"a", "b"},
		CreatedAt:    created,
	}
}

func TestBundleKeyFormat(t *testing.T) {
	t.Parallel()

	b := testBundle(time.Date(2026, 1, 2, 15, 4, 5, 123, time.UTC))
	assert.Equal(t, "20260102-150405.000000123", b.Key())
}

func TestBundleKeysSortInCreationOrder(t *testing.T) {
	t.Parallel()

	earlier := testBundle(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC))
	later := testBundle(time.Date(2026, 1, 2, 15, 4, 6, 0, time.UTC))
	assert.Less(t, earlier.Key(), later.Key())
}

func TestBundleEncodeDecode(t *testing.T) {
	t.Parallel()

	b := testBundle(time.Now().UTC())
	data, err := b.Encode()
	require.NoError(t, err)

	decoded, err := DecodeBundle(data)
	require.NoError(t, err)

	assert.Equal(t, b.FeatureNames, decoded.FeatureNames)
	assert.True(t, b.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, b.Scaler.Mean, decoded.Scaler.Mean)
	assert.Equal(t, b.Logistic.Weights, decoded.Logistic.Weights)

	// The decoded models must score identically.
	probe := b.Scaler.Transform([]float64{1.5, 1})
	assert.Equal(t, b.Forest.PredictProba(probe), decoded.Forest.PredictProba(probe))
	assert.Equal(t, b.Logistic.PredictProba(probe), decoded.Logistic.PredictProba(probe))
}

func TestDecodeBundleGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeBundle([]byte("not a bundle"))
	assert.Error(t, err)
}
