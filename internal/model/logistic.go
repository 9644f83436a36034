package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/velora-tech/fraudsight/pkg/errors"
)

// LogisticRegression is an L2-regularized logistic classifier trained with
// batch gradient descent. Features are standardized internally using the
// training mean and standard deviation, so callers pass raw feature values.
type LogisticRegression struct {
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Means        []float64 `json:"means"`
	Stds         []float64 `json:"stds"`
	LearningRate float64   `json:"learning_rate"`
	Epochs       int       `json:"epochs"`
	L2           float64   `json:"l2"`
}

// NewLogisticRegression returns an untrained logistic model with the given
// hyperparameters. Zero values fall back to defaults.
func NewLogisticRegression(learningRate float64, epochs int, l2 float64) *LogisticRegression {
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if epochs <= 0 {
		epochs = 300
	}
	return &LogisticRegression{LearningRate: learningRate, Epochs: epochs, L2: l2}
}

// Family implements Model.
func (m *LogisticRegression) Family() string { return FamilyLogisticRegression }

// Fit implements Model.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	n := len(X)
	if n == 0 {
		return errors.ErrDatasetEmpty
	}
	if n != len(y) {
		return errors.New("features and labels length mismatch")
	}
	d := len(X[0])

	m.Means, m.Stds = columnStats(X)
	z := standardized(X, m.Means, m.Stds)

	labels := make([]float64, n)
	for i, label := range y {
		if label != 0 {
			labels[i] = 1
		}
	}

	w := mat.NewVecDense(d, nil)
	bias := 0.0
	invN := 1.0 / float64(n)

	var scores mat.VecDense
	resid := mat.NewVecDense(n, nil)
	var grad mat.VecDense
	for epoch := 0; epoch < m.Epochs; epoch++ {
		scores.MulVec(z, w)
		var biasGrad float64
		for i := 0; i < n; i++ {
			r := sigmoid(scores.AtVec(i)+bias) - labels[i]
			resid.SetVec(i, r)
			biasGrad += r
		}
		grad.MulVec(z.T(), resid)
		for j := 0; j < d; j++ {
			g := grad.AtVec(j)*invN + m.L2*w.AtVec(j)
			w.SetVec(j, w.AtVec(j)-m.LearningRate*g)
		}
		bias -= m.LearningRate * biasGrad * invN
	}

	m.Weights = make([]float64, d)
	for j := 0; j < d; j++ {
		m.Weights[j] = w.AtVec(j)
	}
	m.Bias = bias
	return nil
}

// PredictProba implements Model.
func (m *LogisticRegression) PredictProba(X [][]float64) []float64 {
	probs := make([]float64, len(X))
	for i, row := range X {
		score := m.Bias
		for j, v := range row {
			if j >= len(m.Weights) {
				break
			}
			score += m.Weights[j] * scale(v, m.Means[j], m.Stds[j])
		}
		probs[i] = sigmoid(score)
	}
	return probs
}

// Predict implements Model.
func (m *LogisticRegression) Predict(X [][]float64) []int {
	probs := m.PredictProba(X)
	labels := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels
}

func sigmoid(x float64) float64 {
	// clip to keep exp in range
	if x > 30 {
		return 1
	}
	if x < -30 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

func scale(v, mean, std float64) float64 {
	if std == 0 {
		return v - mean
	}
	return (v - mean) / std
}

// columnStats returns the per-column mean and standard deviation of a
// row-major matrix. Constant columns get a std of 0, which scale treats as
// centering only.
func columnStats(X [][]float64) (means, stds []float64) {
	if len(X) == 0 {
		return nil, nil
	}
	d := len(X[0])
	means = make([]float64, d)
	stds = make([]float64, d)
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		means[j] = stat.Mean(col, nil)
		if len(col) > 1 {
			stds[j] = stat.StdDev(col, nil)
		}
	}
	return means, stds
}

// standardized builds a dense standardized copy of X.
func standardized(X [][]float64, means, stds []float64) *mat.Dense {
	n := len(X)
	d := len(X[0])
	z := mat.NewDense(n, d, nil)
	for i, row := range X {
		for j, v := range row {
			z.Set(i, j, scale(v, means[j], stds[j]))
		}
	}
	return z
}
