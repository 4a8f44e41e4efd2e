package storage

import (
	"testing"
	"time"

	"edurisk/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedBundle(t *testing.T, created time.Time) *ml.TrainedModelBundle {
	t.Helper()
	samples := [][]float64{{-1, 0}, {1, 1}, {-2, 0}, {2, 1}}
	labels := []int{0, 1, 0, 1}
	scaler, err := ml.FitScaler(samples)
	require.NoError(t, err)
	return &ml.TrainedModelBundle{
		Forest:       ml.TrainForest(samples, labels, ml.ForestParams{Trees: 2, MaxDepth: 2, MinSamplesSplit: 2, MinSamplesLeaf: 1}, 1),
		Logistic:     ml.TrainLogistic(samples, labels, ml.DefaultLogisticParams(1)),
		Scaler:       scaler,
		FeatureNames: []string{"a", "b"},
		CreatedAt:    created,
	}
}

func TestBundleStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	b := trainedBundle(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	key, err := store.Save(b)
	require.NoError(t, err)
	assert.Equal(t, b.Key(), key)

	got, err := store.Get(key)
	require.NoError(t, err)
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, b.FeatureNames, got.FeatureNames)
}

func TestBundleStoreLatest(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Latest()
	require.ErrorIs(t, err, ml.ErrNoBundle)

	older := trainedBundle(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	newer := trainedBundle(t, time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC))

	// Insertion order must not matter, only the timestamp key.
	_, err = store.Save(newer)
	require.NoError(t, err)
	_, err = store.Save(older)
	require.NoError(t, err)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.True(t, newer.CreatedAt.Equal(latest.CreatedAt))
}

func TestBundleStoreKeys(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	times := []time.Time{
		time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		_, err := store.Save(trainedBundle(t, ts))
		require.NoError(t, err)
	}

	keys, err := store.Keys()
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.IsIncreasing(t, keys)
}

func TestBundleStoreGetMissing(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get("20990101-000000.000000000")
	require.ErrorIs(t, err, ml.ErrNoBundle)
}
