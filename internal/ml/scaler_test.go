package ml

import (
	"math"
	"testing"
)

func TestFitScaler(t *testing.T) {
	t.Parallel()

	samples := [][]float64{
		{1, 2},
		{3, 2},
	}
	s, err := FitScaler(samples)
	if err != nil {
		t.Fatalf("FitScaler failed: %v", err)
	}

	if math.Abs(s.Mean[0]-2) > 1e-9 || math.Abs(s.Std[0]-1) > 1e-9 {
		t.Errorf("Column 0: mean=%.4f std=%.4f, want 2/1", s.Mean[0], s.Std[0])
	}
	// Constant column keeps std 1 so it passes through centered.
	if s.Std[1] != 1 {
		t.Errorf("Constant column std should be 1, got %.4f", s.Std[1])
	}

	out := s.Transform([]float64{3, 2})
	if math.Abs(out[0]-1) > 1e-9 || math.Abs(out[1]) > 1e-9 {
		t.Errorf("Transform([3,2])=%v, want [1,0]", out)
	}
}

func TestFitScalerEmpty(t *testing.T) {
	t.Parallel()

	if _, err := FitScaler(nil); err == nil {
		t.Error("Expected error for empty sample set")
	}
}

func TestTransformAll(t *testing.T) {
	t.Parallel()

	s := &Scaler{Mean: []float64{10}, Std: []float64{2}}
	out := s.TransformAll([][]float64{{12}, {8}})
	if out[0][0] != 1 || out[1][0] != -1 {
		t.Errorf("TransformAll mismatch: %v", out)
	}
}
