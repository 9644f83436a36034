package drift_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/internal/drift"
)

// stubClassifier returns canned predictions regardless of input.
type stubClassifier struct {
	labels []int
	scores []float64
}

func (s *stubClassifier) Predict(X [][]float64) []int          { return s.labels }
func (s *stubClassifier) PredictProba(X [][]float64) []float64 { return s.scores }

var perfX = [][]float64{{1}, {2}, {3}, {4}}
var perfY = []int{0, 0, 1, 1}

func TestDetectPerformanceDrift_StableModel(t *testing.T) {
	classifier := &stubClassifier{labels: []int{0, 0, 1, 1}, scores: []float64{0.1, 0.2, 0.8, 0.9}}
	baseline := map[string]float64{"roc_auc": 1.0, "precision": 1.0, "recall": 1.0, "f1_score": 1.0}
	detector := drift.NewPerformanceDetector(zap.NewNop(), classifier, baseline, 0.05)

	result := detector.DetectPerformanceDrift(perfX, perfY)

	assert.True(t, result.Evaluated)
	assert.False(t, result.PerformanceDriftDetected)
	assert.Empty(t, result.ConfigIssues)
	require.Contains(t, result.MetricChanges, "roc_auc")
	assert.Equal(t, 0.0, result.MetricChanges["roc_auc"].ChangePercentage)
	assert.False(t, result.MetricChanges["precision"].DriftDetected)
}

func TestDetectPerformanceDrift_DegradedModel(t *testing.T) {
	// predictions fully inverted against the labels
	classifier := &stubClassifier{labels: []int{1, 1, 0, 0}, scores: []float64{0.9, 0.8, 0.2, 0.1}}
	baseline := map[string]float64{"roc_auc": 1.0, "precision": 1.0, "recall": 1.0, "f1_score": 1.0}
	detector := drift.NewPerformanceDetector(zap.NewNop(), classifier, baseline, 0.05)

	result := detector.DetectPerformanceDrift(perfX, perfY)

	assert.True(t, result.Evaluated)
	assert.True(t, result.PerformanceDriftDetected)
	for _, metric := range []string{"roc_auc", "precision", "recall", "f1_score"} {
		require.Contains(t, result.MetricChanges, metric)
		assert.True(t, result.MetricChanges[metric].DriftDetected, metric)
		assert.Equal(t, 100.0, result.MetricChanges[metric].ChangePercentage, metric)
	}
}

func TestDetectPerformanceDrift_NoModel(t *testing.T) {
	detector := drift.NewPerformanceDetector(zap.NewNop(), nil, map[string]float64{"roc_auc": 0.9}, 0.05)

	result := detector.DetectPerformanceDrift(perfX, perfY)

	assert.False(t, result.Evaluated)
	assert.False(t, result.PerformanceDriftDetected)
	assert.Equal(t, "Model not available for evaluation", result.Error)
	assert.Empty(t, result.MetricChanges)
}

func TestDetectPerformanceDrift_ZeroBaseline(t *testing.T) {
	classifier := &stubClassifier{labels: []int{0, 0, 1, 1}, scores: []float64{0.1, 0.2, 0.8, 0.9}}
	baseline := map[string]float64{"precision": 0.0, "recall": 1.0}
	detector := drift.NewPerformanceDetector(zap.NewNop(), classifier, baseline, 0.05)

	result := detector.DetectPerformanceDrift(perfX, perfY)

	assert.True(t, result.Evaluated)
	assert.False(t, result.PerformanceDriftDetected)
	require.Contains(t, result.MetricChanges, "precision")
	assert.False(t, result.MetricChanges["precision"].DriftDetected)
	require.Len(t, result.ConfigIssues, 1)
	assert.Contains(t, result.ConfigIssues[0], "precision")
}

func TestDetectPerformanceDrift_SingleClassLabels(t *testing.T) {
	classifier := &stubClassifier{labels: []int{1, 1, 1, 1}, scores: []float64{0.9, 0.9, 0.9, 0.9}}
	baseline := map[string]float64{"roc_auc": 0.95, "recall": 1.0}
	detector := drift.NewPerformanceDetector(zap.NewNop(), classifier, baseline, 0.05)

	result := detector.DetectPerformanceDrift(perfX, []int{1, 1, 1, 1})

	assert.True(t, result.Evaluated)
	assert.NotContains(t, result.CurrentMetrics, "roc_auc")
	assert.NotContains(t, result.MetricChanges, "roc_auc")
	require.NotEmpty(t, result.ConfigIssues)
	assert.Contains(t, result.ConfigIssues[0], "roc_auc")
}
