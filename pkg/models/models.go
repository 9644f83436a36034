package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Risk levels assigned to scored transactions.
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// RiskLevel maps a fraud probability to a risk level band.
func RiskLevel(probability float64) string {
	switch {
	case probability >= 0.8:
		return RiskLevelHigh
	case probability >= 0.5:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Transaction represents a payment transaction entering the scoring pipeline
type Transaction struct {
	ID               uuid.UUID       `json:"transaction_id" gorm:"primaryKey;type:varchar(36)" validate:"required"`
	UserID           string          `json:"user_id" gorm:"type:varchar(36);index" validate:"required"`
	Timestamp        time.Time       `json:"timestamp" gorm:"index" validate:"required"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:decimal(18,2)" validate:"required"`
	MerchantCategory string          `json:"merchant_category" validate:"required,max=50"`
	TransactionType  string          `json:"transaction_type" validate:"required,oneof=purchase withdrawal transfer payment refund"`
	Location         string          `json:"location" validate:"omitempty,max=100"`
	DeviceID         string          `json:"device_id" gorm:"type:varchar(64)" validate:"omitempty,max=64"`
	DeviceType       string          `json:"device_type" validate:"omitempty,oneof=mobile desktop tablet pos_terminal atm"`
	IsFraud          bool            `json:"is_fraud" gorm:"index"` // label, known only for historical data
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// AmountFloat returns the transaction amount as a float64 for feature math.
func (t *Transaction) AmountFloat() float64 {
	f, _ := t.Amount.Float64()
	return f
}

// PredictionRecord represents one scored transaction
type PredictionRecord struct {
	ID               uuid.UUID `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TransactionID    string    `json:"transaction_id" gorm:"type:varchar(36);index"`
	UserID           string    `json:"user_id" gorm:"type:varchar(36);index"`
	ModelVersion     string    `json:"model_version" gorm:"type:varchar(20);index"`
	FraudProbability float64   `json:"fraud_probability"`
	RiskLevel        string    `json:"risk_level" gorm:"type:varchar(10);index"`
	Flagged          bool      `json:"flagged"`
	LatencyMS        float64   `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for PredictionRecord
func (PredictionRecord) TableName() string {
	return "predictions"
}

// ModelVersion represents a registered trained model
type ModelVersion struct {
	ID              uuid.UUID `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Version         string    `json:"version" gorm:"type:varchar(20);uniqueIndex"`
	Family          string    `json:"family" gorm:"type:varchar(50)"` // logistic_regression, gradient_stumps
	Weights         []byte    `json:"-" gorm:"type:blob"`
	FeatureNames    string    `json:"feature_names" gorm:"type:text"` // JSON array, column order of the weight vector
	Metrics         string    `json:"metrics" gorm:"type:text"`       // JSON map of evaluation metrics
	TrainingSamples int       `json:"training_samples"`
	Status          string    `json:"status" gorm:"type:varchar(20);index"` // active, retired
	TrainedAt       time.Time `json:"trained_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for ModelVersion
func (ModelVersion) TableName() string {
	return "model_versions"
}

// Model version statuses.
const (
	ModelStatusActive  = "active"
	ModelStatusRetired = "retired"
)

// ScoreRequest is the payload accepted by the prediction endpoints
type ScoreRequest struct {
	TransactionID    string  `json:"transaction_id" validate:"omitempty,uuid"`
	UserID           string  `json:"user_id" validate:"required"`
	Timestamp        string  `json:"timestamp" validate:"omitempty"`
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	MerchantCategory string  `json:"merchant_category" validate:"required,max=50"`
	TransactionType  string  `json:"transaction_type" validate:"required,oneof=purchase withdrawal transfer payment refund"`
	Location         string  `json:"location" validate:"omitempty,max=100"`
	DeviceID         string  `json:"device_id" validate:"omitempty,max=64"`
	DeviceType       string  `json:"device_type" validate:"omitempty,oneof=mobile desktop tablet pos_terminal atm"`
}

// ToTransaction converts a score request into a Transaction, filling defaults.
func (r *ScoreRequest) ToTransaction() Transaction {
	id := uuid.New()
	if r.TransactionID != "" {
		if parsed, err := uuid.Parse(r.TransactionID); err == nil {
			id = parsed
		}
	}
	ts := time.Now().UTC()
	if r.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, r.Timestamp); err == nil {
			ts = parsed
		}
	}
	return Transaction{
		ID:               id,
		UserID:           r.UserID,
		Timestamp:        ts,
		Amount:           decimal.NewFromFloat(r.Amount),
		MerchantCategory: r.MerchantCategory,
		TransactionType:  r.TransactionType,
		Location:         r.Location,
		DeviceID:         r.DeviceID,
		DeviceType:       r.DeviceType,
	}
}

// ScoreResponse is returned by the prediction endpoints
type ScoreResponse struct {
	TransactionID    string    `json:"transaction_id"`
	FraudProbability float64   `json:"fraud_probability"`
	RiskLevel        string    `json:"risk_level"`
	Flagged          bool      `json:"flagged"`
	ModelVersion     string    `json:"model_version"`
	LatencyMS        float64   `json:"latency_ms"`
	Timestamp        time.Time `json:"timestamp"`
}
