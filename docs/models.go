package docs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string    `json:"status" example:"ok" enums:"ok,degraded" description:"Service status; degraded when no model is loaded"`
	Timestamp    time.Time `json:"timestamp" example:"2026-08-25T12:00:00Z" description:"Server time"`
	ModelLoaded  bool      `json:"model_loaded" example:"true" description:"Whether a scoring model is loaded"`
	ModelVersion string    `json:"model_version" example:"v1" description:"Version of the active model"`
} // @name HealthResponse

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error" example:"transaction validation failed" description:"Human-readable error message"`
} // @name ErrorResponse

// ScoreRequest represents a transaction submitted for scoring
type ScoreRequest struct {
	TransactionID    string  `json:"transaction_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000" validate:"omitempty,uuid" description:"Optional client-provided transaction ID"`
	UserID           string  `json:"user_id" example:"user_000042" validate:"required" description:"Account the transaction belongs to"`
	Timestamp        string  `json:"timestamp,omitempty" example:"2026-08-25T12:00:00Z" description:"RFC3339 transaction time; defaults to now"`
	Amount           float64 `json:"amount" example:"125.50" validate:"required,gt=0" description:"Transaction amount"`
	MerchantCategory string  `json:"merchant_category" example:"grocery" validate:"required,max=50" description:"Merchant category"`
	TransactionType  string  `json:"transaction_type" example:"purchase" validate:"required,oneof=purchase withdrawal transfer payment refund" description:"Transaction type"`
	Location         string  `json:"location,omitempty" example:"Chicago" validate:"omitempty,max=100" description:"Transaction location"`
	DeviceID         string  `json:"device_id,omitempty" example:"device_7f3a" validate:"omitempty,max=64" description:"Originating device identifier"`
	DeviceType       string  `json:"device_type,omitempty" example:"mobile" validate:"omitempty,oneof=mobile desktop tablet pos_terminal atm" description:"Device class"`
} // @name ScoreRequest

// ScoreResponse represents the scoring verdict for one transaction
type ScoreResponse struct {
	TransactionID    string    `json:"transaction_id" example:"123e4567-e89b-12d3-a456-426614174000" description:"Transaction ID, generated when not supplied"`
	FraudProbability float64   `json:"fraud_probability" example:"0.1274" description:"Model probability that the transaction is fraudulent"`
	RiskLevel        string    `json:"risk_level" example:"low" enums:"low,medium,high" description:"Banded risk level"`
	Flagged          bool      `json:"flagged" example:"false" description:"Whether the probability crossed the flag threshold"`
	ModelVersion     string    `json:"model_version" example:"v1" description:"Model that produced the score"`
	LatencyMS        float64   `json:"latency_ms" example:"1.84" description:"Scoring latency in milliseconds"`
	Timestamp        time.Time `json:"timestamp" example:"2026-08-25T12:00:00Z" description:"Scoring timestamp"`
} // @name ScoreResponse

// BatchScoreRequest represents a batch scoring request
type BatchScoreRequest struct {
	Transactions []ScoreRequest `json:"transactions" validate:"required,min=1,max=1000,dive" description:"Transactions to score, up to 1000"`
} // @name BatchScoreRequest

// BatchScoreResponse represents a batch scoring response
type BatchScoreResponse struct {
	Count   int             `json:"count" example:"3" description:"Number of scored transactions"`
	Results []ScoreResponse `json:"results" description:"Scores in request order"`
} // @name BatchScoreResponse

// SampleTransaction represents a generated synthetic transaction
type SampleTransaction struct {
	ID               uuid.UUID       `json:"id" example:"123e4567-e89b-12d3-a456-426614174000" description:"Transaction identifier"`
	UserID           string          `json:"user_id" example:"user_000042" description:"Synthetic user"`
	Timestamp        time.Time       `json:"timestamp" example:"2026-08-25T12:00:00Z" description:"Transaction time"`
	Amount           decimal.Decimal `json:"amount" example:"125.50" description:"Transaction amount"`
	MerchantCategory string          `json:"merchant_category" example:"grocery" description:"Merchant category"`
	TransactionType  string          `json:"transaction_type" example:"purchase" description:"Transaction type"`
	Location         string          `json:"location" example:"Chicago" description:"Transaction location"`
	DeviceType       string          `json:"device_type" example:"mobile" description:"Device class"`
	IsFraud          bool            `json:"is_fraud" example:"false" description:"Ground-truth fraud label"`
} // @name SampleTransaction

// DriftCheckRequest represents an ad-hoc drift check over posted transactions.
// An empty body runs a full monitor cycle against the configured window source.
type DriftCheckRequest struct {
	Transactions []SampleTransaction `json:"transactions,omitempty" description:"Window to compare against the reference; omit to run the full cycle"`
} // @name DriftCheckRequest

// FeatureDriftResult represents the drift test outcome for one feature
type FeatureDriftResult struct {
	FeatureName         string  `json:"feature_name" example:"amount" description:"Feature name"`
	FeatureType         string  `json:"feature_type,omitempty" example:"numerical" enums:"numerical,categorical" description:"Feature type, selects the statistical test"`
	Method              string  `json:"method,omitempty" example:"ks_test" enums:"ks_test,chi2_test,insufficient_data" description:"Statistical test applied"`
	Outcome             string  `json:"outcome" example:"ok" enums:"ok,degenerate,error" description:"How the test resolved"`
	DriftDetected       bool    `json:"drift_detected" example:"true" description:"Whether the p-value fell below the significance level"`
	PValue              float64 `json:"p_value" example:"0.0003" description:"Test p-value"`
	TestStatistic       float64 `json:"test_statistic" example:"0.1832" description:"KS statistic for numerical features, chi-square for categorical"`
	WassersteinDistance float64 `json:"wasserstein_distance,omitempty" example:"12.4" description:"Wasserstein distance for numerical features"`
	JSDivergence        float64 `json:"js_divergence,omitempty" example:"0.031" description:"Jensen-Shannon divergence for numerical features"`
	PSI                 float64 `json:"psi,omitempty" example:"0.2841" description:"Population stability index for categorical features"`
	Warning             string  `json:"warning,omitempty" example:"" description:"Degenerate input explanation"`
	Error               string  `json:"error,omitempty" example:"" description:"Test failure detail"`
} // @name FeatureDriftResult

// DriftSummary represents a dataset-level drift evaluation
type DriftSummary struct {
	OverallDriftDetected bool                          `json:"overall_drift_detected" example:"true" description:"Whether enough features drifted to flag the dataset"`
	FeaturesWithDrift    int                           `json:"features_with_drift" example:"3" description:"Number of features whose distribution shifted"`
	TotalFeaturesTested  int                           `json:"total_features_tested" example:"20" description:"Number of features tested"`
	DriftPercentage      float64                       `json:"drift_percentage" example:"15.0" description:"Share of tested features that drifted"`
	FeatureResults       map[string]FeatureDriftResult `json:"feature_results" description:"Per-feature outcomes keyed by feature name"`
	Timestamp            time.Time                     `json:"timestamp" example:"2026-08-25T12:00:00Z" description:"Evaluation time"`
} // @name DriftSummary

// MonitorStatus represents the drift monitor state
type MonitorStatus struct {
	Running           bool      `json:"running" example:"true" description:"Whether the periodic loop is active"`
	CheckInterval     string    `json:"check_interval" example:"1h0m0s" description:"Interval between checks"`
	MinSamples        int       `json:"min_samples" example:"100" description:"Minimum window size before a check runs"`
	AutoRetrain       bool      `json:"auto_retrain" example:"false" description:"Whether critical drift triggers retraining automatically"`
	ChecksExecuted    int64     `json:"checks_executed" example:"42" description:"Completed checks since start"`
	LastCheck         time.Time `json:"last_check" example:"2026-08-25T12:00:00Z" description:"Time of the last completed check"`
	LastSeverity      string    `json:"last_severity" example:"OK" enums:"OK,WARNING,CRITICAL" description:"Severity of the last check"`
	LastDriftPercent  float64   `json:"last_drift_percent" example:"5.0" description:"Drift percentage of the last check"`
	LastError         string    `json:"last_error,omitempty" example:"" description:"Error of the last failed check, empty on success"`
	ModelVersion      string    `json:"model_version" example:"v1" description:"Model version in service"`
	ReferenceRows     int       `json:"reference_rows" example:"10000" description:"Rows in the reference window"`
	MonitoredFeatures int       `json:"monitored_features" example:"20" description:"Features under drift testing"`
} // @name MonitorStatus

// DataDriftSection represents the data drift portion of an alert report
type DataDriftSection struct {
	Severity         string            `json:"severity" example:"WARNING" enums:"OK,WARNING,CRITICAL" description:"Section severity"`
	FeaturesAffected int               `json:"features_affected" example:"3" description:"Features that drifted"`
	TotalFeatures    int               `json:"total_features" example:"20" description:"Features tested"`
	DriftPercentage  float64           `json:"drift_percentage" example:"15.0" description:"Share of tested features that drifted"`
	Warnings         map[string]string `json:"warnings,omitempty" description:"Degenerate or failed feature tests keyed by feature name"`
} // @name DataDriftSection

// PerformanceDriftSection represents the performance drift portion of an alert report
type PerformanceDriftSection struct {
	Evaluated       bool     `json:"evaluated" example:"true" description:"Whether labeled data was available for evaluation"`
	DriftDetected   bool     `json:"drift_detected" example:"false" description:"Whether any metric degraded past the threshold"`
	AffectedMetrics []string `json:"affected_metrics" example:"accuracy,roc_auc" description:"Metrics that degraded"`
} // @name PerformanceDriftSection

// AlertReport represents one evaluation report in the alert history
type AlertReport struct {
	Timestamp        time.Time                `json:"timestamp" example:"2026-08-25T12:00:00Z" description:"Report time"`
	DatasetName      string                   `json:"dataset_name" example:"current_window" description:"Evaluated window"`
	OverallSeverity  string                   `json:"overall_severity" example:"WARNING" enums:"OK,WARNING,CRITICAL" description:"Worst severity across sections"`
	DataDrift        DataDriftSection         `json:"data_drift" description:"Distribution shift verdict"`
	PerformanceDrift *PerformanceDriftSection `json:"performance_drift,omitempty" description:"Metric degradation verdict, absent when no labels were available"`
	Recommendations  []string                 `json:"recommendations" example:"investigate drifted features" description:"Suggested operator actions"`
} // @name AlertReport

// AlertListResponse represents the alert history response
type AlertListResponse struct {
	Count  int           `json:"count" example:"5" description:"Number of reports returned"`
	Alerts []AlertReport `json:"alerts" description:"Reports, newest first"`
} // @name AlertListResponse

// RetrainingRecord represents one retraining run in the audit history
type RetrainingRecord struct {
	ID                  uint       `json:"id" example:"3" description:"Record identifier"`
	TriggerTimestamp    time.Time  `json:"trigger_timestamp" example:"2026-08-25T12:00:00Z" description:"When the run started"`
	TriggerReason       string     `json:"trigger_reason" example:"critical drift" enums:"critical drift,high drift percentage,manual trigger" description:"Why the gate fired"`
	Status              string     `json:"status" example:"completed" enums:"initiated,completed,failed" description:"Run outcome"`
	CompletionTimestamp *time.Time `json:"completion_timestamp,omitempty" example:"2026-08-25T12:05:00Z" description:"When the run finished"`
	NewModelVersion     string     `json:"new_model_version" example:"v3" description:"Version produced by the run"`
	TrainingSamples     int        `json:"training_samples" example:"10000" description:"Samples used for training"`
	Error               string     `json:"error,omitempty" example:"" description:"Failure detail when status is failed"`
} // @name RetrainingRecord

// RetrainingDecision represents the outcome of a retraining trigger
type RetrainingDecision struct {
	Triggered bool              `json:"triggered" example:"true" description:"Whether a run was executed"`
	Reason    string            `json:"reason" example:"manual trigger" enums:"cooldown active,critical drift,high drift percentage,within thresholds,manual trigger" description:"Gate decision reason"`
	Record    *RetrainingRecord `json:"record,omitempty" description:"Audit record when a run was executed"`
} // @name RetrainingDecision

// ModelVersionInfo represents one registry entry
type ModelVersionInfo struct {
	Version         string    `json:"version" example:"v1" description:"Model version label"`
	Family          string    `json:"family" example:"logistic_regression" description:"Model family"`
	Status          string    `json:"status" example:"active" enums:"active,retired" description:"Registry status"`
	TrainingSamples int       `json:"training_samples" example:"10000" description:"Samples used for training"`
	TrainedAt       time.Time `json:"trained_at" example:"2026-08-25T12:00:00Z" description:"Training completion time"`
} // @name ModelVersionInfo

// ModelInfoResponse represents the active model with registry context
type ModelInfoResponse struct {
	Version         string             `json:"version" example:"v1" description:"Active model version"`
	Family          string             `json:"family" example:"logistic_regression" description:"Model family"`
	Metrics         map[string]float64 `json:"metrics,omitempty" description:"Validation metrics recorded at training time"`
	TrainedAt       time.Time          `json:"trained_at,omitempty" example:"2026-08-25T12:00:00Z" description:"Training completion time"`
	TrainingSamples int                `json:"training_samples,omitempty" example:"10000" description:"Samples used for training"`
	Versions        []ModelVersionInfo `json:"versions,omitempty" description:"Recent registry entries, newest first"`
} // @name ModelInfoResponse

// PredictionRecord represents one logged scoring decision
type PredictionRecord struct {
	ID               uuid.UUID `json:"id" example:"123e4567-e89b-12d3-a456-426614174000" description:"Record identifier"`
	TransactionID    string    `json:"transaction_id" example:"123e4567-e89b-12d3-a456-426614174000" description:"Scored transaction"`
	UserID           string    `json:"user_id" example:"user_000042" description:"Account the transaction belongs to"`
	ModelVersion     string    `json:"model_version" example:"v1" description:"Model that produced the score"`
	FraudProbability float64   `json:"fraud_probability" example:"0.1274" description:"Model output"`
	RiskLevel        string    `json:"risk_level" example:"low" enums:"low,medium,high" description:"Banded risk level"`
	Flagged          bool      `json:"flagged" example:"false" description:"Whether the score crossed the flag threshold"`
	LatencyMS        float64   `json:"latency_ms" example:"1.84" description:"Scoring latency in milliseconds"`
	CreatedAt        time.Time `json:"created_at" example:"2026-08-25T12:00:00Z" description:"Logging time"`
} // @name PredictionRecord

// PredictionListResponse represents the recent predictions response
type PredictionListResponse struct {
	Count       int                `json:"count" example:"50" description:"Number of records returned"`
	Predictions []PredictionRecord `json:"predictions" description:"Records, newest first"`
} // @name PredictionListResponse
