package inference_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/velora-tech/fraudsight/internal/features"
	"github.com/velora-tech/fraudsight/internal/inference"
	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/models"
)

// thresholdModel scores by raw amount so risk bands are predictable.
type thresholdModel struct{}

func (thresholdModel) Fit(_ [][]float64, _ []int) error { return nil }

func (thresholdModel) Predict(X [][]float64) []int {
	proba := thresholdModel{}.PredictProba(X)
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

func (thresholdModel) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		switch {
		case row[0] > 1000:
			out[i] = 0.9
		case row[0] > 100:
			out[i] = 0.55
		default:
			out[i] = 0.1
		}
	}
	return out
}

func (thresholdModel) Family() string { return "threshold_stub" }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Transaction{}, &models.PredictionRecord{}))
	return db
}

func newScorer(t *testing.T, db *gorm.DB) (*inference.Scorer, *features.MemoryStateStore) {
	t.Helper()
	store := features.NewMemoryStateStore()
	scorer := inference.NewScorer(zap.NewNop(), db, features.NewExtractor(zap.NewNop()), store)
	scorer.SetModel(thresholdModel{}, "v1")
	return scorer, store
}

func sampleTxn(user string, amount float64) models.Transaction {
	return models.Transaction{
		ID:               uuid.New(),
		UserID:           user,
		Timestamp:        time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
		Amount:           decimal.NewFromFloat(amount),
		MerchantCategory: "online",
		TransactionType:  "purchase",
		Location:         "Chicago",
		DeviceID:         "device_1",
		DeviceType:       "mobile",
	}
}

func TestScorer_ScoreTransaction(t *testing.T) {
	ctx := context.Background()
	scorer, store := newScorer(t, nil)

	txn := sampleTxn("alice", 5000)
	resp, err := scorer.ScoreTransaction(ctx, &txn)
	require.NoError(t, err)

	assert.Equal(t, txn.ID.String(), resp.TransactionID)
	assert.Equal(t, 0.9, resp.FraudProbability)
	assert.Equal(t, models.RiskLevelHigh, resp.RiskLevel)
	assert.True(t, resp.Flagged)
	assert.Equal(t, "v1", resp.ModelVersion)
	assert.GreaterOrEqual(t, resp.LatencyMS, 0.0)

	// Scoring folds the transaction into the rolling state.
	state, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, int64(1), state.Count)
}

func TestScorer_ScoreBatchRiskLevels(t *testing.T) {
	ctx := context.Background()
	scorer, _ := newScorer(t, nil)

	txns := []models.Transaction{
		sampleTxn("alice", 5000),
		sampleTxn("bob", 500),
		sampleTxn("carol", 20),
	}
	responses, err := scorer.ScoreBatch(ctx, txns)
	require.NoError(t, err)
	require.Len(t, responses, 3)

	assert.Equal(t, models.RiskLevelHigh, responses[0].RiskLevel)
	assert.True(t, responses[0].Flagged)
	assert.Equal(t, models.RiskLevelMedium, responses[1].RiskLevel)
	assert.True(t, responses[1].Flagged)
	assert.Equal(t, models.RiskLevelLow, responses[2].RiskLevel)
	assert.False(t, responses[2].Flagged)
}

func TestScorer_NoModel(t *testing.T) {
	ctx := context.Background()
	store := features.NewMemoryStateStore()
	scorer := inference.NewScorer(zap.NewNop(), nil, features.NewExtractor(zap.NewNop()), store)

	txn := sampleTxn("alice", 100)
	_, err := scorer.ScoreTransaction(ctx, &txn)
	assert.True(t, errors.Is(err, errors.ErrModelUnavailable))

	_, err = scorer.ScoreBatch(ctx, []models.Transaction{txn})
	assert.True(t, errors.Is(err, errors.ErrModelUnavailable))
}

func TestScorer_EmptyBatch(t *testing.T) {
	scorer, _ := newScorer(t, nil)
	_, err := scorer.ScoreBatch(context.Background(), nil)
	assert.True(t, errors.Is(err, errors.ErrDatasetEmpty))
}

func TestScorer_PredictionLogging(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	scorer, _ := newScorer(t, db)

	txn := sampleTxn("alice", 5000)
	_, err := scorer.ScoreTransaction(ctx, &txn)
	require.NoError(t, err)

	_, err = scorer.ScoreBatch(ctx, []models.Transaction{
		sampleTxn("bob", 500),
		sampleTxn("carol", 20),
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.PredictionRecord{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	var record models.PredictionRecord
	require.NoError(t, db.Where("transaction_id = ?", txn.ID.String()).First(&record).Error)
	assert.Equal(t, "alice", record.UserID)
	assert.Equal(t, models.RiskLevelHigh, record.RiskLevel)
	assert.Equal(t, "v1", record.ModelVersion)
	assert.True(t, record.Flagged)

	recent, err := scorer.RecentPredictions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	// Scored transactions are persisted for the drift monitor's window.
	var txnCount int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&txnCount).Error)
	assert.Equal(t, int64(3), txnCount)
}

func TestScorer_TransactionsSince(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	scorer, _ := newScorer(t, db)

	old := sampleTxn("alice", 50)
	old.Timestamp = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	recent := sampleTxn("bob", 75)
	recent.Timestamp = time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

	_, err := scorer.ScoreBatch(ctx, []models.Transaction{old, recent})
	require.NoError(t, err)

	window, err := scorer.TransactionsSince(ctx, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 100)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "bob", window[0].UserID)

	// Rescoring the same transaction does not duplicate the stored row.
	_, err = scorer.ScoreTransaction(ctx, &recent)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestScorer_SetModelSwapsVersion(t *testing.T) {
	ctx := context.Background()
	scorer, _ := newScorer(t, nil)
	require.Equal(t, "v1", scorer.ModelVersion())

	scorer.SetModel(thresholdModel{}, "v2")
	assert.Equal(t, "v2", scorer.ModelVersion())

	txn := sampleTxn("alice", 20)
	resp, err := scorer.ScoreTransaction(ctx, &txn)
	require.NoError(t, err)
	assert.Equal(t, "v2", resp.ModelVersion)
}
