package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-tech/fraudsight/internal/model"
)

func TestConfusionMatrix(t *testing.T) {
	y := []int{1, 1, 1, 0, 0, 0, 0, 1}
	predicted := []int{1, 1, 0, 0, 0, 1, 0, 0}

	cm := model.NewConfusionMatrix(y, predicted)
	assert.Equal(t, 2, cm.TruePositives)
	assert.Equal(t, 3, cm.TrueNegatives)
	assert.Equal(t, 1, cm.FalsePositives)
	assert.Equal(t, 2, cm.FalseNegatives)

	assert.InDelta(t, 5.0/8.0, cm.Accuracy(), 1e-12)
	assert.InDelta(t, 2.0/3.0, cm.Precision(), 1e-12)
	assert.InDelta(t, 0.5, cm.Recall(), 1e-12)
	p, r := 2.0/3.0, 0.5
	assert.InDelta(t, 2*p*r/(p+r), cm.F1(), 1e-12)
}

func TestConfusionMatrix_ZeroDivision(t *testing.T) {
	// no positive predictions and no positive labels
	cm := model.NewConfusionMatrix([]int{0, 0, 0}, []int{0, 0, 0})
	assert.Equal(t, 0.0, cm.Precision())
	assert.Equal(t, 0.0, cm.Recall())
	assert.Equal(t, 0.0, cm.F1())
	assert.Equal(t, 1.0, cm.Accuracy())
}

func TestROCAUC(t *testing.T) {
	t.Run("KnownValue", func(t *testing.T) {
		auc, err := model.ROCAUC([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
		require.NoError(t, err)
		assert.InDelta(t, 0.75, auc, 1e-12)
	})

	t.Run("PerfectSeparation", func(t *testing.T) {
		auc, err := model.ROCAUC([]int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9})
		require.NoError(t, err)
		assert.Equal(t, 1.0, auc)
	})

	t.Run("InvertedScores", func(t *testing.T) {
		auc, err := model.ROCAUC([]int{0, 0, 1, 1}, []float64{0.9, 0.8, 0.2, 0.1})
		require.NoError(t, err)
		assert.Equal(t, 0.0, auc)
	})

	t.Run("AllTied", func(t *testing.T) {
		auc, err := model.ROCAUC([]int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, auc, 1e-12)
	})

	t.Run("SingleClass", func(t *testing.T) {
		_, err := model.ROCAUC([]int{1, 1, 1}, []float64{0.1, 0.2, 0.3})
		assert.Error(t, err)
	})
}

func TestEvaluateBinary(t *testing.T) {
	y := []int{0, 0, 1, 1}
	predicted := []int{0, 1, 1, 1}
	scores := []float64{0.2, 0.6, 0.7, 0.9}

	metrics := model.EvaluateBinary(y, predicted, scores)
	assert.Contains(t, metrics, "precision")
	assert.Contains(t, metrics, "recall")
	assert.Contains(t, metrics, "f1_score")
	assert.Contains(t, metrics, "roc_auc")
	assert.InDelta(t, 2.0/3.0, metrics["precision"], 1e-12)
	assert.Equal(t, 1.0, metrics["recall"])
	assert.Equal(t, 1.0, metrics["roc_auc"])
}

func TestEvaluateBinary_SingleClassOmitsAUC(t *testing.T) {
	metrics := model.EvaluateBinary([]int{1, 1}, []int{1, 0}, []float64{0.9, 0.4})
	assert.NotContains(t, metrics, "roc_auc")
	assert.Contains(t, metrics, "f1_score")
}
