package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/models"
)

// Registry persists model versions and tracks which one is active. At most
// one version is active at a time; saving a new version retires the previous
// one in the same transaction.
type Registry struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRegistry builds a Registry on top of an opened database handle.
func NewRegistry(db *gorm.DB, logger *zap.Logger) *Registry {
	return &Registry{db: db, logger: logger}
}

// Save stores a trained model under the given version and makes it the
// active one.
func (r *Registry) Save(version string, trained *TrainedModel, featureNames []string) error {
	weights, err := Marshal(trained.Model)
	if err != nil {
		return errors.Wrap(err).Explain("serialize model")
	}
	names, err := json.Marshal(featureNames)
	if err != nil {
		return errors.Wrap(err).Explain("serialize feature names")
	}
	metrics, err := json.Marshal(trained.Metrics)
	if err != nil {
		return errors.Wrap(err).Explain("serialize metrics")
	}

	record := models.ModelVersion{
		ID:              uuid.New(),
		Version:         version,
		Family:          trained.Family,
		Weights:         weights,
		FeatureNames:    string(names),
		Metrics:         string(metrics),
		TrainingSamples: trained.TrainingSamples,
		Status:          models.ModelStatusActive,
		TrainedAt:       time.Now().UTC(),
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ModelVersion{}).
			Where("status = ?", models.ModelStatusActive).
			Update("status", models.ModelStatusRetired).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return errors.NewWithKind(errors.KindStorage, "save model version").Wrap(err)
	}

	r.logger.Info("model version saved",
		zap.String("version", version),
		zap.String("family", trained.Family),
		zap.Int("training_samples", trained.TrainingSamples))
	return nil
}

// LoadActive returns the currently active model together with its stored
// metadata. It reports KindNotFound when no version is active yet.
func (r *Registry) LoadActive() (Model, *models.ModelVersion, error) {
	var record models.ModelVersion
	err := r.db.Where("status = ?", models.ModelStatusActive).
		Order("trained_at DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.NewWithKind(errors.KindNotFound, "no active model version")
		}
		return nil, nil, errors.NewWithKind(errors.KindStorage, "load active model").Wrap(err)
	}
	m, err := Unmarshal(record.Weights)
	if err != nil {
		return nil, nil, errors.Wrap(err).Explain("deserialize model")
	}
	return m, &record, nil
}

// FeatureNames decodes the feature name list stored with a version.
func FeatureNames(record *models.ModelVersion) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(record.FeatureNames), &names); err != nil {
		return nil, errors.Wrap(err).Explain("decode feature names")
	}
	return names, nil
}

// List returns stored versions, newest first.
func (r *Registry) List(limit int) ([]models.ModelVersion, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []models.ModelVersion
	err := r.db.Order("trained_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, errors.NewWithKind(errors.KindStorage, "list model versions").Wrap(err)
	}
	return records, nil
}
