package ml

import (
	"math"
	"testing"
)

// separableSet builds a two-feature dataset where feature 0 fully determines
// the label and feature 1 is noise.
func separableSet() (samples [][]float64, labels []int) {
	for i := 0; i < 10; i++ {
		samples = append(samples, []float64{-1 - float64(i)*0.1, float64(i % 3)})
		labels = append(labels, 0)
		samples = append(samples, []float64{1 + float64(i)*0.1, float64(i % 3)})
		labels = append(labels, 1)
	}
	return samples, labels
}

var smallForest = ForestParams{Trees: 20, MaxDepth: 4, MinSamplesSplit: 2, MinSamplesLeaf: 1}

func TestTrainForestSeparable(t *testing.T) {
	t.Parallel()

	samples, labels := separableSet()
	f := TrainForest(samples, labels, smallForest, 1)

	if len(f.Trees) != smallForest.Trees {
		t.Fatalf("Expected %d trees, got %d", smallForest.Trees, len(f.Trees))
	}
	if p := f.PredictProba([]float64{2, 0}); p < 0.7 {
		t.Errorf("Positive region probability too low: %.4f", p)
	}
	if p := f.PredictProba([]float64{-2, 0}); p > 0.3 {
		t.Errorf("Negative region probability too high: %.4f", p)
	}
}

func TestTrainForestDeterministic(t *testing.T) {
	t.Parallel()

	samples, labels := separableSet()
	f1 := TrainForest(samples, labels, smallForest, 42)
	f2 := TrainForest(samples, labels, smallForest, 42)

	probe := []float64{0.5, 1}
	if f1.PredictProba(probe) != f2.PredictProba(probe) {
		t.Error("Same seed produced different forests")
	}
}

func TestForestImportances(t *testing.T) {
	t.Parallel()

	samples, labels := separableSet()
	f := TrainForest(samples, labels, smallForest, 1)

	if len(f.Importances) != 2 {
		t.Fatalf("Expected 2 importances, got %d", len(f.Importances))
	}
	sum := f.Importances[0] + f.Importances[1]
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("Importances should normalize to 1, got %.6f", sum)
	}
	if f.Importances[0] <= f.Importances[1] {
		t.Errorf("Discriminating feature should dominate: %.4f vs %.4f", f.Importances[0], f.Importances[1])
	}
}

func TestForestPureNodeIsLeaf(t *testing.T) {
	t.Parallel()

	samples := [][]float64{{1}, {2}, {3}}
	labels := []int{1, 1, 1}
	f := TrainForest(samples, labels, ForestParams{Trees: 3, MinSamplesSplit: 2, MinSamplesLeaf: 1}, 1)

	for _, root := range f.Trees {
		if !root.Leaf || root.Prob != 1 {
			t.Errorf("Single-class training should yield pure leaves, got leaf=%v prob=%.2f", root.Leaf, root.Prob)
		}
	}
}

func TestForestEmptyPredicts0(t *testing.T) {
	t.Parallel()

	f := &RandomForest{}
	if p := f.PredictProba([]float64{1}); p != 0 {
		t.Errorf("Expected 0 from an empty forest, got %.2f", p)
	}
}
