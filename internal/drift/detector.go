package drift

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/pkg/metrics"
)

// DefaultSignificanceLevel is the p-value cutoff used when none is configured.
const DefaultSignificanceLevel = 0.05

// overallDriftThreshold is the aggregator's fixed "any meaningful drift"
// cutoff on the drift percentage. It is intentionally separate from the
// alerting severity ladder and the retraining trigger threshold, which apply
// their own cut points to the same percentage.
const overallDriftThreshold = 25.0

// Detector compares incoming datasets against a fixed reference dataset. The
// reference and the monitored feature list are set at construction and never
// change; every detection call is a pure function of the current dataset.
type Detector struct {
	logger            *zap.Logger
	reference         *Dataset
	selectedFeatures  []string
	significanceLevel float64
}

// NewDetector builds a Detector monitoring the given features. A nil feature
// list monitors every reference column; a non-positive significance level
// falls back to the default.
func NewDetector(logger *zap.Logger, reference *Dataset, selectedFeatures []string, significanceLevel float64) *Detector {
	if significanceLevel <= 0 || significanceLevel >= 1 {
		significanceLevel = DefaultSignificanceLevel
	}
	if selectedFeatures == nil {
		selectedFeatures = reference.FeatureNames()
	}
	return &Detector{
		logger:            logger,
		reference:         reference,
		selectedFeatures:  selectedFeatures,
		significanceLevel: significanceLevel,
	}
}

// SelectedFeatures returns the monitored feature names.
func (d *Detector) SelectedFeatures() []string {
	return append([]string(nil), d.selectedFeatures...)
}

// Reference returns the reference dataset the detector was built with.
func (d *Detector) Reference() *Dataset { return d.reference }

// DetectFeatureDrift tests a single feature of the current dataset against
// the reference. A feature missing from either side is reported as an error
// result, not a failure. Columns that are numerical on both sides take the
// KS test; any other combination is compared categorically.
func (d *Detector) DetectFeatureDrift(current *Dataset, featureName string) FeatureDriftResult {
	refCol, ok := d.reference.Column(featureName)
	if !ok {
		return FeatureDriftResult{
			FeatureName:   featureName,
			Outcome:       OutcomeError,
			DriftDetected: false,
			Error:         fmt.Sprintf("Feature %s not found in reference data", featureName),
		}
	}
	curCol, ok := current.Column(featureName)
	if !ok {
		return FeatureDriftResult{
			FeatureName:   featureName,
			Outcome:       OutcomeError,
			DriftDetected: false,
			Error:         fmt.Sprintf("Feature %s not found in current data", featureName),
		}
	}

	var result FeatureDriftResult
	if refCol.Type == Numerical && curCol.Type == Numerical {
		result = DetectNumericalDrift(refCol.Floats, curCol.Floats, d.significanceLevel)
	} else {
		result = DetectCategoricalDrift(refCol.labels(), curCol.labels(), d.significanceLevel)
	}
	result.FeatureName = featureName
	return result
}

// DetectDatasetDrift evaluates every monitored feature present in the
// current dataset and aggregates the results. Features absent from the
// current dataset are skipped and do not count toward the total; features
// absent from the reference produce error results that are collected and
// counted but can never register drift.
func (d *Detector) DetectDatasetDrift(current *Dataset) DatasetDriftSummary {
	d.logger.Info("running drift detection",
		zap.String("dataset", current.Name()),
		zap.Int("selected_features", len(d.selectedFeatures)))

	results := make(map[string]FeatureDriftResult, len(d.selectedFeatures))
	driftCount := 0
	tested := 0
	for _, feature := range d.selectedFeatures {
		if !current.HasFeature(feature) {
			continue
		}
		result := d.DetectFeatureDrift(current, feature)
		results[feature] = result
		tested++
		if result.DriftDetected {
			driftCount++
		}
	}

	driftPercentage := 0.0
	if tested > 0 {
		driftPercentage = 100 * float64(driftCount) / float64(tested)
	}

	summary := DatasetDriftSummary{
		OverallDriftDetected: driftPercentage > overallDriftThreshold,
		FeaturesWithDrift:    driftCount,
		TotalFeaturesTested:  tested,
		DriftPercentage:      driftPercentage,
		FeatureResults:       results,
		Timestamp:            time.Now().UTC(),
	}

	metrics.DriftChecksTotal.Inc()
	metrics.DriftFeaturesDetected.Set(float64(driftCount))
	metrics.DriftPercentage.Set(driftPercentage)

	d.logger.Info("drift detection complete",
		zap.String("dataset", current.Name()),
		zap.Int("features_with_drift", driftCount),
		zap.Int("total_features_tested", tested),
		zap.Float64("drift_percentage", driftPercentage),
		zap.Bool("overall_drift_detected", summary.OverallDriftDetected))
	return summary
}
