package drift_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/internal/drift"
)

func TestDetectFeatureDrift_MissingFeature(t *testing.T) {
	reference := drift.NewDataset("reference").
		AddNumericColumn("amount", normalSample(100, 20, 100, 0.3))
	current := drift.NewDataset("current").
		AddNumericColumn("velocity", normalSample(1, 0.1, 100, 0.7))
	detector := drift.NewDetector(zap.NewNop(), reference, []string{"amount", "velocity"}, 0.05)

	t.Run("AbsentFromReference", func(t *testing.T) {
		result := detector.DetectFeatureDrift(current, "velocity")
		assert.Equal(t, drift.OutcomeError, result.Outcome)
		assert.False(t, result.DriftDetected)
		assert.Equal(t, "Feature velocity not found in reference data", result.Error)
	})

	t.Run("AbsentFromCurrent", func(t *testing.T) {
		result := detector.DetectFeatureDrift(current, "amount")
		assert.Equal(t, drift.OutcomeError, result.Outcome)
		assert.False(t, result.DriftDetected)
		assert.Equal(t, "Feature amount not found in current data", result.Error)
	})
}

func TestDetectFeatureDrift_TypeDispatch(t *testing.T) {
	reference := drift.NewDataset("reference").
		AddNumericColumn("amount", normalSample(100, 20, 200, 0.3)).
		AddCategoricalColumn("device", repeatLabels(labelPair("mobile", 100), labelPair("pos", 100))).
		AddNumericColumn("flag", []float64{0, 1, 0, 1})
	detector := drift.NewDetector(zap.NewNop(), reference, nil, 0.05)

	t.Run("BothNumeric", func(t *testing.T) {
		current := drift.NewDataset("current").
			AddNumericColumn("amount", normalSample(100, 20, 200, 0.7))
		result := detector.DetectFeatureDrift(current, "amount")
		assert.Equal(t, drift.MethodKSTest, result.Method)
		assert.Equal(t, "numerical", result.FeatureType)
		assert.Equal(t, "amount", result.FeatureName)
	})

	t.Run("BothCategorical", func(t *testing.T) {
		current := drift.NewDataset("current").
			AddCategoricalColumn("device", repeatLabels(labelPair("mobile", 50), labelPair("pos", 50)))
		result := detector.DetectFeatureDrift(current, "device")
		assert.Equal(t, drift.MethodChiSquare, result.Method)
		assert.Equal(t, "categorical", result.FeatureType)
	})

	t.Run("MixedTypesCompareCategorically", func(t *testing.T) {
		current := drift.NewDataset("current").
			AddCategoricalColumn("flag", []string{"0", "1", "0", "1"})
		result := detector.DetectFeatureDrift(current, "flag")
		assert.Equal(t, drift.MethodChiSquare, result.Method)
		// stringified numeric values line up with the categorical labels
		assert.False(t, result.DriftDetected)
	})
}

func TestDetectDatasetDrift_Aggregation(t *testing.T) {
	reference := drift.NewDataset("reference").
		AddNumericColumn("amount", normalSample(100, 20, 500, 0.3)).
		AddNumericColumn("velocity", normalSample(5, 1, 500, 0.3)).
		AddNumericColumn("balance", normalSample(1000, 100, 500, 0.3)).
		AddNumericColumn("age_days", normalSample(400, 50, 500, 0.3))

	t.Run("HalfDrifted", func(t *testing.T) {
		current := drift.NewDataset("current").
			AddNumericColumn("amount", normalSample(500, 20, 500, 0.7)).
			AddNumericColumn("velocity", normalSample(50, 1, 500, 0.7)).
			AddNumericColumn("balance", normalSample(1000, 100, 500, 0.7)).
			AddNumericColumn("age_days", normalSample(400, 50, 500, 0.7))
		detector := drift.NewDetector(zap.NewNop(), reference, nil, 0.05)

		summary := detector.DetectDatasetDrift(current)
		assert.Equal(t, 4, summary.TotalFeaturesTested)
		assert.Equal(t, 2, summary.FeaturesWithDrift)
		assert.Equal(t, 50.0, summary.DriftPercentage)
		assert.True(t, summary.OverallDriftDetected)
		require.Contains(t, summary.FeatureResults, "amount")
		assert.True(t, summary.FeatureResults["amount"].DriftDetected)
		assert.False(t, summary.FeatureResults["balance"].DriftDetected)
	})

	t.Run("QuarterDriftedStaysBelowCutoff", func(t *testing.T) {
		current := drift.NewDataset("current").
			AddNumericColumn("amount", normalSample(500, 20, 500, 0.7)).
			AddNumericColumn("velocity", normalSample(5, 1, 500, 0.7)).
			AddNumericColumn("balance", normalSample(1000, 100, 500, 0.7)).
			AddNumericColumn("age_days", normalSample(400, 50, 500, 0.7))
		detector := drift.NewDetector(zap.NewNop(), reference, nil, 0.05)

		summary := detector.DetectDatasetDrift(current)
		assert.Equal(t, 25.0, summary.DriftPercentage)
		// exactly 25% does not cross the strict threshold
		assert.False(t, summary.OverallDriftDetected)
	})

	t.Run("PercentageBounds", func(t *testing.T) {
		current := drift.NewDataset("current").
			AddNumericColumn("amount", normalSample(500, 20, 500, 0.7)).
			AddNumericColumn("velocity", normalSample(50, 1, 500, 0.7)).
			AddNumericColumn("balance", normalSample(1, 0.1, 500, 0.7)).
			AddNumericColumn("age_days", normalSample(4000, 50, 500, 0.7))
		detector := drift.NewDetector(zap.NewNop(), reference, nil, 0.05)

		summary := detector.DetectDatasetDrift(current)
		assert.Equal(t, 100.0, summary.DriftPercentage)
		assert.Equal(t, 4, summary.FeaturesWithDrift)
		assert.True(t, summary.OverallDriftDetected)
	})
}

func TestDetectDatasetDrift_MissingFeatures(t *testing.T) {
	reference := drift.NewDataset("reference").
		AddNumericColumn("amount", normalSample(100, 20, 300, 0.3))
	current := drift.NewDataset("current").
		AddNumericColumn("amount", normalSample(100, 20, 300, 0.7)).
		AddNumericColumn("extra", normalSample(1, 1, 300, 0.7))
	detector := drift.NewDetector(zap.NewNop(), reference,
		[]string{"amount", "extra", "only_in_reference"}, 0.05)

	summary := detector.DetectDatasetDrift(current)

	// "only_in_reference" is absent from the current dataset and skipped;
	// "extra" is tested but resolves to an error result
	assert.Equal(t, 2, summary.TotalFeaturesTested)
	assert.Equal(t, 0, summary.FeaturesWithDrift)
	assert.NotContains(t, summary.FeatureResults, "only_in_reference")
	require.Contains(t, summary.FeatureResults, "extra")
	assert.Equal(t, drift.OutcomeError, summary.FeatureResults["extra"].Outcome)
	assert.Equal(t, "Feature extra not found in reference data", summary.FeatureResults["extra"].Error)

	warnings := summary.Warnings()
	assert.Contains(t, warnings, "extra")
}

func TestDetectDatasetDrift_NoTestableFeatures(t *testing.T) {
	reference := drift.NewDataset("reference").
		AddNumericColumn("amount", normalSample(100, 20, 100, 0.3))
	current := drift.NewDataset("current").
		AddNumericColumn("velocity", normalSample(5, 1, 100, 0.7))
	detector := drift.NewDetector(zap.NewNop(), reference, []string{"amount"}, 0.05)

	summary := detector.DetectDatasetDrift(current)

	assert.Equal(t, 0, summary.TotalFeaturesTested)
	assert.Equal(t, 0.0, summary.DriftPercentage)
	assert.False(t, summary.OverallDriftDetected)
	assert.Empty(t, summary.FeatureResults)
}
