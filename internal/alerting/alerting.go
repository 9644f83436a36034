// Package alerting converts drift detection output into severity verdicts,
// structured alert reports and recommended actions, and decides when drift is
// severe enough to ask for retraining.
package alerting

import (
	"sort"
	"time"

	"github.com/velora-tech/fraudsight/internal/drift"
)

// Severity is the escalation level derived from the drift percentage.
type Severity string

const (
	SeverityOK       Severity = "OK"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// retrainTriggerPercent is the drift percentage above which retraining is
// requested even without a CRITICAL verdict. It sits deliberately above the
// severity ladder's critical cutoff; the two answer different questions.
const retrainTriggerPercent = 60.0

// Thresholds hold the alerting cut points. The drift percentages form the
// severity ladder; the performance degradation pair classifies metric drops.
type Thresholds struct {
	DriftPercentCritical           float64 `json:"drift_percentage_critical"`
	DriftPercentWarning            float64 `json:"drift_percentage_warning"`
	PerformanceDegradationCritical float64 `json:"performance_degradation_critical"`
	PerformanceDegradationWarning  float64 `json:"performance_degradation_warning"`
}

// DefaultThresholds returns the standard alerting configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DriftPercentCritical:           50,
		DriftPercentWarning:            25,
		PerformanceDegradationCritical: 0.10,
		PerformanceDegradationWarning:  0.05,
	}
}

// DataDriftSection summarizes the data drift side of an alert report.
// Warnings carries per-feature degradation notes so degenerate inputs are
// visible to operators and never read as confirmed stability.
type DataDriftSection struct {
	Severity         Severity          `json:"severity"`
	FeaturesAffected int               `json:"features_affected"`
	TotalFeatures    int               `json:"total_features"`
	DriftPercentage  float64           `json:"drift_percentage"`
	Warnings         map[string]string `json:"warnings,omitempty"`
}

// PerformanceDriftSection summarizes the model performance side of a report.
type PerformanceDriftSection struct {
	Evaluated       bool     `json:"evaluated"`
	DriftDetected   bool     `json:"drift_detected"`
	AffectedMetrics []string `json:"affected_metrics"`
}

// AlertReport is the structured alert produced for one drift evaluation.
type AlertReport struct {
	Timestamp        time.Time                `json:"timestamp"`
	DatasetName      string                   `json:"dataset_name"`
	OverallSeverity  Severity                 `json:"overall_severity"`
	DataDrift        DataDriftSection         `json:"data_drift"`
	PerformanceDrift *PerformanceDriftSection `json:"performance_drift,omitempty"`
	Recommendations  []string                 `json:"recommendations"`
}

// recommendationsBySeverity is the fixed action catalog per severity level.
var recommendationsBySeverity = map[Severity][]string{
	SeverityCritical: {
		"IMMEDIATE ACTION REQUIRED: Severe drift detected",
		"Trigger emergency model retraining with recent data",
		"Consider temporarily disabling automated decisions",
		"Investigate root cause of data distribution changes",
		"Validate data quality and preprocessing pipeline",
	},
	SeverityWarning: {
		"Monitor closely: moderate drift detected",
		"Schedule model retraining within the next evaluation cycle",
		"Review recent data collection processes",
		"Increase monitoring frequency",
		"Assess whether feature engineering updates are required",
	},
	SeverityOK: {
		"Continue normal operations",
		"Maintain regular monitoring schedule",
		"Document baseline performance for future comparisons",
	},
}

// System evaluates drift summaries against the configured thresholds. It is
// stateless: every report is derived purely from its inputs.
type System struct {
	thresholds Thresholds
}

// NewSystem builds a System. Zero-valued thresholds fall back to defaults.
func NewSystem(thresholds Thresholds) *System {
	defaults := DefaultThresholds()
	if thresholds.DriftPercentCritical <= 0 {
		thresholds.DriftPercentCritical = defaults.DriftPercentCritical
	}
	if thresholds.DriftPercentWarning <= 0 {
		thresholds.DriftPercentWarning = defaults.DriftPercentWarning
	}
	if thresholds.PerformanceDegradationCritical <= 0 {
		thresholds.PerformanceDegradationCritical = defaults.PerformanceDegradationCritical
	}
	if thresholds.PerformanceDegradationWarning <= 0 {
		thresholds.PerformanceDegradationWarning = defaults.PerformanceDegradationWarning
	}
	return &System{thresholds: thresholds}
}

// EvaluateDriftSeverity maps a drift percentage onto the severity ladder.
func (s *System) EvaluateDriftSeverity(summary drift.DatasetDriftSummary) Severity {
	switch {
	case summary.DriftPercentage >= s.thresholds.DriftPercentCritical:
		return SeverityCritical
	case summary.DriftPercentage >= s.thresholds.DriftPercentWarning:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// GenerateAlertReport builds the full alert report for a drift summary and
// an optional performance drift result.
func (s *System) GenerateAlertReport(summary drift.DatasetDriftSummary, performance *drift.PerformanceDriftResult, datasetName string) AlertReport {
	severity := s.EvaluateDriftSeverity(summary)

	report := AlertReport{
		Timestamp:       time.Now().UTC(),
		DatasetName:     datasetName,
		OverallSeverity: severity,
		DataDrift: DataDriftSection{
			Severity:         severity,
			FeaturesAffected: summary.FeaturesWithDrift,
			TotalFeatures:    summary.TotalFeaturesTested,
			DriftPercentage:  summary.DriftPercentage,
		},
		Recommendations: append([]string(nil), recommendationsBySeverity[severity]...),
	}
	if warnings := summary.Warnings(); len(warnings) > 0 {
		report.DataDrift.Warnings = warnings
	}

	if performance != nil {
		section := PerformanceDriftSection{
			Evaluated:     performance.Evaluated,
			DriftDetected: performance.PerformanceDriftDetected,
		}
		for metric, change := range performance.MetricChanges {
			if change.DriftDetected {
				section.AffectedMetrics = append(section.AffectedMetrics, metric)
			}
		}
		sort.Strings(section.AffectedMetrics)
		report.PerformanceDrift = &section
	}

	return report
}

// ShouldTriggerRetraining reports whether the drift described by the report
// is severe enough to request retraining: CRITICAL severity, or a drift
// percentage above the stricter trigger cutoff.
func (s *System) ShouldTriggerRetraining(report AlertReport) bool {
	return report.OverallSeverity == SeverityCritical ||
		report.DataDrift.DriftPercentage > retrainTriggerPercent
}
