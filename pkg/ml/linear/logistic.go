package linear

import (
	"errors"
	"math"
)

var ErrDimensionMismatch = errors.New("coefficient and sample lengths differ")

type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// Predict returns P(class=1 | sample) for a logistic model.
func Predict(weights Weights, sample []float64) (float64, error) {
	if len(weights.Coefficients) != len(sample) {
		return 0, ErrDimensionMismatch
	}
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias), nil
}

// Probabilities returns the two-class probability vector [P(0), P(1)].
func Probabilities(weights Weights, sample []float64) ([]float64, error) {
	p, err := Predict(weights, sample)
	if err != nil {
		return nil, err
	}
	return []float64{1 - p, p}, nil
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
