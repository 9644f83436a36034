package drift

import "time"

// Outcome classifies how a feature test resolved. Degenerate and error
// results always carry drift_detected=false together with an explanation, so
// callers must not read them as positive evidence of stability.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeDegenerate Outcome = "degenerate"
	OutcomeError      Outcome = "error"
)

// Test method identifiers reported with each result.
const (
	MethodKSTest           = "ks_test"
	MethodChiSquare        = "chi2_test"
	MethodInsufficientData = "insufficient_data"
)

// FeatureDriftResult is the outcome of testing a single feature. The
// auxiliary distances are type specific: Wasserstein and Jensen-Shannon for
// numerical features, PSI for categorical ones.
type FeatureDriftResult struct {
	FeatureName         string  `json:"feature_name"`
	FeatureType         string  `json:"feature_type,omitempty"`
	Method              string  `json:"method,omitempty"`
	Outcome             Outcome `json:"outcome"`
	DriftDetected       bool    `json:"drift_detected"`
	PValue              float64 `json:"p_value"`
	TestStatistic       float64 `json:"test_statistic"`
	WassersteinDistance float64 `json:"wasserstein_distance,omitempty"`
	JSDivergence        float64 `json:"js_divergence,omitempty"`
	PSI                 float64 `json:"psi,omitempty"`
	Warning             string  `json:"warning,omitempty"`
	Error               string  `json:"error,omitempty"`
}

// DatasetDriftSummary aggregates per-feature results into a dataset level
// verdict. The drift percentage is computed over the features that were
// actually tested, and the overall flag fires when more than a quarter of
// them drifted.
type DatasetDriftSummary struct {
	OverallDriftDetected bool                          `json:"overall_drift_detected"`
	FeaturesWithDrift    int                           `json:"features_with_drift"`
	TotalFeaturesTested  int                           `json:"total_features_tested"`
	DriftPercentage      float64                       `json:"drift_percentage"`
	FeatureResults       map[string]FeatureDriftResult `json:"feature_results"`
	Timestamp            time.Time                     `json:"timestamp"`
}

// Warnings collects the warning and error strings carried by individual
// feature results, keyed by feature name. Downstream alerting surfaces these
// so degenerate inputs are never mistaken for confirmed stability.
func (s DatasetDriftSummary) Warnings() map[string]string {
	out := make(map[string]string)
	for name, r := range s.FeatureResults {
		switch {
		case r.Error != "":
			out[name] = r.Error
		case r.Warning != "":
			out[name] = r.Warning
		}
	}
	return out
}
