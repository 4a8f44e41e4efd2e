// Package ml implements the trained side of the dropout-risk subsystem: a
// random-forest classifier, an L2 logistic regression, the standard scaler,
// grid-searched cross-validated training and the fixed-weight ensemble
// predictor. Models are plain in-process values bundled into an immutable
// TrainedModelBundle; there is no hidden global model state.
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes features to zero mean and unit variance, with moments
// fit on the training split only.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-column moments over the given samples. Columns with
// zero variance scale by 1 so constant features pass through centered.
func FitScaler(samples [][]float64) (*Scaler, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("fit scaler: no samples")
	}
	cols := len(samples[0])
	s := &Scaler{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}

	column := make([]float64, len(samples))
	for j := 0; j < cols; j++ {
		for i, row := range samples {
			column[i] = row[j]
		}
		s.Mean[j] = stat.Mean(column, nil)
		s.Std[j] = stat.PopStdDev(column, nil)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s, nil
}

// Transform standardizes a single sample.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll standardizes a batch of samples.
func (s *Scaler) TransformAll(samples [][]float64) [][]float64 {
	out := make([][]float64, len(samples))
	for i, row := range samples {
		out[i] = s.Transform(row)
	}
	return out
}
