package model

import (
	"math"
	"sort"

	"github.com/velora-tech/fraudsight/pkg/errors"
)

// Stump is a single depth-1 rule. Rows with feature value <= Threshold
// contribute Left to the ensemble score, the rest contribute Right. The leaf
// values are already scaled by the learning rate at training time.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// GradientStumps is a boosted ensemble of decision stumps trained on the
// logistic loss with Newton leaf estimates. It gives model selection a
// nonlinear alternative to the linear baseline.
type GradientStumps struct {
	Stumps       []Stump `json:"stumps"`
	Base         float64 `json:"base"`
	LearningRate float64 `json:"learning_rate"`
	Rounds       int     `json:"rounds"`
}

// NewGradientStumps returns an untrained ensemble with the given number of
// boosting rounds and shrinkage. Zero values fall back to defaults.
func NewGradientStumps(rounds int, learningRate float64) *GradientStumps {
	if rounds <= 0 {
		rounds = 100
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	return &GradientStumps{Rounds: rounds, LearningRate: learningRate}
}

// Family implements Model.
func (m *GradientStumps) Family() string { return FamilyGradientStumps }

const leafEps = 1e-6

// Fit implements Model.
func (m *GradientStumps) Fit(X [][]float64, y []int) error {
	n := len(X)
	if n == 0 {
		return errors.ErrDatasetEmpty
	}
	if n != len(y) {
		return errors.New("features and labels length mismatch")
	}
	d := len(X[0])

	labels := make([]float64, n)
	pos := 0.0
	for i, label := range y {
		if label != 0 {
			labels[i] = 1
			pos++
		}
	}
	prior := pos / float64(n)
	prior = math.Min(math.Max(prior, 1e-4), 1-1e-4)
	m.Base = math.Log(prior / (1 - prior))

	// Sort order per feature is fixed across rounds, so compute it once.
	order := make([][]int, d)
	for j := 0; j < d; j++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool { return X[idx[a]][j] < X[idx[b]][j] })
		order[j] = idx
	}

	score := make([]float64, n)
	for i := range score {
		score[i] = m.Base
	}
	grads := make([]float64, n)
	hess := make([]float64, n)

	m.Stumps = m.Stumps[:0]
	for round := 0; round < m.Rounds; round++ {
		var sumG, sumH float64
		for i := 0; i < n; i++ {
			p := sigmoid(score[i])
			grads[i] = labels[i] - p
			hess[i] = p * (1 - p)
			sumG += grads[i]
			sumH += hess[i]
		}

		best := Stump{Feature: -1}
		bestGain := math.Inf(-1)
		for j := 0; j < d; j++ {
			var leftG, leftH float64
			idx := order[j]
			for k := 0; k < n-1; k++ {
				i := idx[k]
				leftG += grads[i]
				leftH += hess[i]
				cur, next := X[i][j], X[idx[k+1]][j]
				if cur == next {
					continue
				}
				rightG := sumG - leftG
				rightH := sumH - leftH
				gain := leftG*leftG/(leftH+leafEps) + rightG*rightG/(rightH+leafEps)
				if gain > bestGain {
					bestGain = gain
					best = Stump{
						Feature:   j,
						Threshold: (cur + next) / 2,
						Left:      m.LearningRate * leftG / (leftH + leafEps),
						Right:     m.LearningRate * rightG / (rightH + leafEps),
					}
				}
			}
		}
		if best.Feature < 0 {
			// every feature is constant, nothing left to split on
			break
		}

		m.Stumps = append(m.Stumps, best)
		for i := 0; i < n; i++ {
			if X[i][best.Feature] <= best.Threshold {
				score[i] += best.Left
			} else {
				score[i] += best.Right
			}
		}
	}
	return nil
}

// PredictProba implements Model.
func (m *GradientStumps) PredictProba(X [][]float64) []float64 {
	probs := make([]float64, len(X))
	for i, row := range X {
		score := m.Base
		for _, s := range m.Stumps {
			if s.Feature >= len(row) {
				continue
			}
			if row[s.Feature] <= s.Threshold {
				score += s.Left
			} else {
				score += s.Right
			}
		}
		probs[i] = sigmoid(score)
	}
	return probs
}

// Predict implements Model.
func (m *GradientStumps) Predict(X [][]float64) []int {
	probs := m.PredictProba(X)
	labels := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels
}
