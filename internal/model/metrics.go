package model

import (
	"sort"

	"github.com/velora-tech/fraudsight/pkg/errors"
)

// ConfusionMatrix holds binary classification counts at a fixed decision threshold.
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
}

// NewConfusionMatrix tallies predictions against labels. Labels and
// predictions are 0/1; any nonzero value counts as positive.
func NewConfusionMatrix(y, predicted []int) ConfusionMatrix {
	var m ConfusionMatrix
	n := len(y)
	if len(predicted) < n {
		n = len(predicted)
	}
	for i := 0; i < n; i++ {
		actual := y[i] != 0
		pred := predicted[i] != 0
		switch {
		case actual && pred:
			m.TruePositives++
		case actual && !pred:
			m.FalseNegatives++
		case !actual && pred:
			m.FalsePositives++
		default:
			m.TrueNegatives++
		}
	}
	return m
}

// Accuracy returns the fraction of correct predictions.
func (m ConfusionMatrix) Accuracy() float64 {
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total == 0 {
		return 0
	}
	return float64(m.TruePositives+m.TrueNegatives) / float64(total)
}

// Precision returns TP/(TP+FP), or 0 when nothing was predicted positive.
func (m ConfusionMatrix) Precision() float64 {
	denom := m.TruePositives + m.FalsePositives
	if denom == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(denom)
}

// Recall returns TP/(TP+FN), or 0 when no positives exist.
func (m ConfusionMatrix) Recall() float64 {
	denom := m.TruePositives + m.FalseNegatives
	if denom == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(denom)
}

// F1 returns the harmonic mean of precision and recall.
func (m ConfusionMatrix) F1() float64 {
	p := m.Precision()
	r := m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ROCAUC computes the area under the ROC curve from positive-class scores
// using the rank statistic (Mann-Whitney U). Tied scores receive averaged
// ranks. Returns an error when y contains a single class, since the curve is
// undefined there.
func ROCAUC(y []int, scores []float64) (float64, error) {
	if len(y) != len(scores) {
		return 0, errors.New("labels and scores length mismatch")
	}
	var pos, neg int
	for _, label := range y {
		if label != 0 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, errors.NewWithKind(errors.KindDatasetEmpty, "roc auc undefined for single-class labels")
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, len(scores))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		// average rank for the tie group, ranks are 1-based
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var rankSum float64
	for i, label := range y {
		if label != 0 {
			rankSum += ranks[i]
		}
	}
	p := float64(pos)
	auc := (rankSum - p*(p+1)/2) / (p * float64(neg))
	return auc, nil
}

// EvaluateBinary computes the standard evaluation metrics for binary
// predictions with positive-class scores. The roc_auc entry is omitted when
// the labels contain a single class.
func EvaluateBinary(y, predicted []int, scores []float64) map[string]float64 {
	cm := NewConfusionMatrix(y, predicted)
	metrics := map[string]float64{
		"precision": cm.Precision(),
		"recall":    cm.Recall(),
		"f1_score":  cm.F1(),
	}
	if auc, err := ROCAUC(y, scores); err == nil {
		metrics["roc_auc"] = auc
	}
	return metrics
}
