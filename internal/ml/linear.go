package ml

import (
	"math"
)

// LogisticParams are the logistic-regression hyperparameters. C is the
// inverse regularization strength (L2 penalty), as in the usual
// parameterization: smaller C means stronger regularization.
type LogisticParams struct {
	C            float64 `json:"c"`
	MaxIter      int     `json:"max_iter"`
	LearningRate float64 `json:"learning_rate"`
	Tol          float64 `json:"tol"`
}

// DefaultLogisticParams mirror the training defaults: 1000 iterations,
// full-batch gradient steps of 0.1 on standardized features.
func DefaultLogisticParams(c float64) LogisticParams {
	return LogisticParams{C: c, MaxIter: 1000, LearningRate: 0.1, Tol: 1e-6}
}

// LogisticRegression is a binary L2-regularized logistic classifier.
// Weights are in the canonical feature order.
type LogisticRegression struct {
	Params    LogisticParams
	Weights   []float64
	Intercept float64
}

// TrainLogistic fits the classifier with full-batch gradient descent on
// already-scaled samples. The intercept is not regularized.
func TrainLogistic(samples [][]float64, labels []int, params LogisticParams) *LogisticRegression {
	n := len(samples)
	cols := len(samples[0])
	m := &LogisticRegression{
		Params:  params,
		Weights: make([]float64, cols),
	}

	lambda := 0.0
	if params.C > 0 {
		lambda = 1 / (params.C * float64(n))
	}

	// The L2 shrink factor per step is (1 - lr*lambda); it must stay in (0,1)
	// or the iteration diverges under strong regularization (small C).
	lr := params.LearningRate
	if lambda > 0 && lr*lambda >= 1 {
		lr = 0.5 / lambda
	}

	grad := make([]float64, cols)
	for iter := 0; iter < params.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradB := 0.0

		for i, x := range samples {
			err := sigmoid(m.decision(x)) - float64(labels[i])
			for j, v := range x {
				grad[j] += err * v
			}
			gradB += err
		}

		maxStep := 0.0
		for j := range m.Weights {
			g := grad[j]/float64(n) + lambda*m.Weights[j]
			step := lr * g
			m.Weights[j] -= step
			if s := math.Abs(step); s > maxStep {
				maxStep = s
			}
		}
		stepB := lr * gradB / float64(n)
		m.Intercept -= stepB
		if s := math.Abs(stepB); s > maxStep {
			maxStep = s
		}

		if maxStep < params.Tol {
			break
		}
	}
	return m
}

// PredictProba returns the positive-class probability for one sample.
func (m *LogisticRegression) PredictProba(x []float64) float64 {
	return sigmoid(m.decision(x))
}

func (m *LogisticRegression) decision(x []float64) float64 {
	z := m.Intercept
	for j, w := range m.Weights {
		z += w * x[j]
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
