// Package inference runs the realtime and batch fraud scoring pipeline on
// top of the active model and the feature extractor.
package inference

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velora-tech/fraudsight/internal/features"
	"github.com/velora-tech/fraudsight/internal/model"
	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/metrics"
	"github.com/velora-tech/fraudsight/pkg/models"
)

// Scorer wraps the active model and feature extraction into the scoring
// entry points used by the API and the stream worker. The model handle may
// be swapped at runtime after retraining.
type Scorer struct {
	logger    *zap.Logger
	db        *gorm.DB
	extractor *features.Extractor
	store     features.StateStore

	mu      sync.RWMutex
	model   model.Model
	version string
}

// NewScorer builds a Scorer. db may be nil to disable prediction logging.
func NewScorer(logger *zap.Logger, db *gorm.DB, extractor *features.Extractor, store features.StateStore) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		logger:    logger,
		db:        db,
		extractor: extractor,
		store:     store,
	}
}

// SetModel swaps the live model. Called at startup and after retraining.
func (s *Scorer) SetModel(m model.Model, version string) {
	s.mu.Lock()
	s.model = m
	s.version = version
	s.mu.Unlock()
	s.logger.Info("scoring model updated", zap.String("version", version))
}

// Model returns the live model and its version.
func (s *Scorer) Model() (model.Model, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, s.version
}

// ModelVersion returns the live model version, empty when none is loaded.
func (s *Scorer) ModelVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ScoreTransaction scores a single transaction against the user's rolling
// state, then folds the transaction into that state.
func (s *Scorer) ScoreTransaction(ctx context.Context, txn *models.Transaction) (*models.ScoreResponse, error) {
	start := time.Now()

	m, version := s.Model()
	if m == nil {
		return nil, errors.ErrModelUnavailable
	}

	vec, err := s.extractor.RealtimeFeatures(ctx, s.store, txn)
	if err != nil {
		return nil, err
	}
	proba := m.PredictProba([][]float64{vec})[0]

	if err := s.extractor.UpdateState(ctx, s.store, txn); err != nil {
		s.logger.Warn("failed to update user state",
			zap.String("user_id", txn.UserID),
			zap.Error(err))
	}

	latency := time.Since(start)
	risk := models.RiskLevel(proba)
	metrics.PredictionLatency.Observe(latency.Seconds())
	metrics.PredictionsProcessed.WithLabelValues(risk).Inc()

	resp := &models.ScoreResponse{
		TransactionID:    txn.ID.String(),
		FraudProbability: proba,
		RiskLevel:        risk,
		Flagged:          proba >= 0.5,
		ModelVersion:     version,
		LatencyMS:        float64(latency.Microseconds()) / 1000.0,
		Timestamp:        time.Now().UTC(),
	}
	s.logPredictions(ctx, []models.Transaction{*txn}, []models.ScoreResponse{*resp})
	return resp, nil
}

// ScoreBatch scores a transaction slice with batch feature extraction.
func (s *Scorer) ScoreBatch(ctx context.Context, txns []models.Transaction) ([]models.ScoreResponse, error) {
	if len(txns) == 0 {
		return nil, errors.ErrDatasetEmpty
	}
	start := time.Now()

	m, version := s.Model()
	if m == nil {
		return nil, errors.ErrModelUnavailable
	}

	matrix := s.extractor.BatchFeatures(txns)
	probas := m.PredictProba(matrix.Rows)

	now := time.Now().UTC()
	perRow := float64(time.Since(start).Microseconds()) / 1000.0 / float64(len(txns))
	responses := make([]models.ScoreResponse, len(txns))
	for i, proba := range probas {
		risk := models.RiskLevel(proba)
		metrics.PredictionsProcessed.WithLabelValues(risk).Inc()
		responses[i] = models.ScoreResponse{
			TransactionID:    txns[i].ID.String(),
			FraudProbability: proba,
			RiskLevel:        risk,
			Flagged:          proba >= 0.5,
			ModelVersion:     version,
			LatencyMS:        perRow,
			Timestamp:        now,
		}
	}

	s.logPredictions(ctx, txns, responses)
	s.logger.Info("scored transaction batch",
		zap.Int("count", len(txns)),
		zap.String("model_version", version))
	return responses, nil
}

// logPredictions persists the scored transactions and their prediction
// records, best effort. The stored transactions feed the drift monitor's
// current window.
func (s *Scorer) logPredictions(ctx context.Context, txns []models.Transaction, responses []models.ScoreResponse) {
	if s.db == nil || len(responses) == 0 {
		return
	}
	records := make([]models.PredictionRecord, len(responses))
	for i := range responses {
		records[i] = models.PredictionRecord{
			ID:               uuid.New(),
			TransactionID:    responses[i].TransactionID,
			UserID:           txns[i].UserID,
			ModelVersion:     responses[i].ModelVersion,
			FraudProbability: responses[i].FraudProbability,
			RiskLevel:        responses[i].RiskLevel,
			Flagged:          responses[i].Flagged,
			LatencyMS:        responses[i].LatencyMS,
			CreatedAt:        responses[i].Timestamp,
		}
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		s.logger.Warn("failed to persist prediction records",
			zap.Int("count", len(records)),
			zap.Error(err))
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&txns).Error
	if err != nil {
		s.logger.Warn("failed to persist transactions",
			zap.Int("count", len(txns)),
			zap.Error(err))
	}
}

// TransactionsSince returns stored transactions scored at or after the given
// time, oldest first. The drift monitor uses this as its current window.
func (s *Scorer) TransactionsSince(ctx context.Context, since time.Time, limit int) ([]models.Transaction, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10000
	}
	var txns []models.Transaction
	err := s.db.WithContext(ctx).
		Where("timestamp >= ?", since).
		Order("timestamp ASC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, errors.NewWithKind(errors.KindStorage, "list transactions").Wrap(err)
	}
	return txns, nil
}

// RecentPredictions returns the newest stored prediction records.
func (s *Scorer) RecentPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var records []models.PredictionRecord
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, errors.NewWithKind(errors.KindStorage, "list prediction records").Wrap(err)
	}
	return records, nil
}
