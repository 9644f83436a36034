package monitor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/internal/alerting"
	"github.com/velora-tech/fraudsight/internal/datagen"
	"github.com/velora-tech/fraudsight/internal/drift"
	"github.com/velora-tech/fraudsight/internal/features"
	"github.com/velora-tech/fraudsight/internal/monitor"
	"github.com/velora-tech/fraudsight/internal/retraining"
	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/models"
)

// windowSource serves a fixed window, standing in for the live sample query.
type windowSource struct {
	txns []models.Transaction
	err  error
}

func (s *windowSource) CurrentWindow(ctx context.Context) ([]models.Transaction, error) {
	return s.txns, s.err
}

// amountClassifier flags transactions with a large first feature (amount).
type amountClassifier struct{}

func (amountClassifier) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) > 0 && row[0] > 500 {
			out[i] = 0.9
		} else {
			out[i] = 0.1
		}
	}
	return out
}

func (c amountClassifier) Predict(X [][]float64) []int {
	probas := c.PredictProba(X)
	out := make([]int, len(X))
	for i, p := range probas {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

type fixture struct {
	service *monitor.Service
	source  *windowSource
	history *retraining.MemoryHistory
	trained *atomic.Int64
}

// newFixture builds a full monitoring pipeline over a generated reference
// window. Drift features are restricted to columns with a known, strong
// response to the severe shift so outcomes stay deterministic.
func newFixture(t *testing.T, cfg monitor.Config, current []models.Transaction, reference []models.Transaction, perf *drift.PerformanceDetector) fixture {
	t.Helper()
	logger := zap.NewNop()

	extractor := features.NewExtractor(logger)
	extractor.FitReference(reference)
	refMatrix := extractor.BatchFeatures(reference)
	refDataset := drift.DatasetFromMatrix("reference", refMatrix.Names, refMatrix.Rows)

	detector := drift.NewDetector(logger, refDataset,
		[]string{"amount", "amount_log", "hour_of_day"}, drift.DefaultSignificanceLevel)

	manager := alerting.NewManager(logger, alerting.NewSystem(alerting.DefaultThresholds()))
	history := retraining.NewMemoryHistory()
	gate := retraining.NewGate(logger, history)

	trained := &atomic.Int64{}
	train := func(ctx context.Context, version string) (int, error) {
		trained.Add(1)
		return len(reference), nil
	}

	source := &windowSource{txns: current}
	service, err := monitor.NewService(logger, cfg, monitor.Deps{
		Detector:    detector,
		Performance: perf,
		Alerts:      manager,
		Gate:        gate,
		Source:      source,
		Extractor:   extractor,
		Train:       train,
	})
	require.NoError(t, err)
	return fixture{service: service, source: source, history: history, trained: trained}
}

func TestService_RunCheckNoDrift(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	reference := gen.Generate(600)

	fx := newFixture(t, monitor.Config{MinSamples: 100}, reference, reference, nil)

	report, err := fx.service.RunCheck(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, alerting.SeverityOK, report.OverallSeverity)
	assert.Equal(t, alerting.SeverityOK, report.DataDrift.Severity)
	assert.Zero(t, report.DataDrift.DriftPercentage)
	assert.Nil(t, report.PerformanceDrift)
	assert.Zero(t, fx.trained.Load())

	status := fx.service.Status()
	assert.EqualValues(t, 1, status.ChecksExecuted)
	assert.Equal(t, alerting.SeverityOK, status.LastSeverity)
	assert.False(t, status.LastCheck.IsZero())
	assert.Empty(t, status.LastError)
	assert.Equal(t, 600, status.ReferenceRows)
	assert.Equal(t, 3, status.MonitoredFeatures)
}

func TestService_RunCheckSevereDriftRetrains(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	ds := gen.GenerateDataset(1200, 400, datagen.WithDriftShift(datagen.DriftSevere))

	fx := newFixture(t, monitor.Config{MinSamples: 100, AutoRetrain: true}, ds.Current, ds.Reference, nil)

	report, err := fx.service.RunCheck(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, alerting.SeverityCritical, report.OverallSeverity)
	assert.Equal(t, 100.0, report.DataDrift.DriftPercentage)

	assert.EqualValues(t, 1, fx.trained.Load())
	records, err := fx.history.All()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, retraining.StatusCompleted, records[0].Status)
	assert.Equal(t, "v1", records[0].NewModelVersion)
	assert.Equal(t, "critical drift", records[0].TriggerReason)
	assert.Equal(t, 1200, records[0].TrainingSamples)
}

func TestService_RunCheckConsultsGateWithoutExecuting(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	ds := gen.GenerateDataset(1200, 400, datagen.WithDriftShift(datagen.DriftSevere))

	fx := newFixture(t, monitor.Config{MinSamples: 100, AutoRetrain: false}, ds.Current, ds.Reference, nil)

	report, err := fx.service.RunCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alerting.SeverityCritical, report.OverallSeverity)

	assert.Zero(t, fx.trained.Load())
	records, err := fx.history.All()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestService_RunCheckBelowMinSamples(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	reference := gen.Generate(600)

	fx := newFixture(t, monitor.Config{MinSamples: 100}, reference[:10], reference, nil)

	report, err := fx.service.RunCheck(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, errors.ErrDatasetEmpty))

	status := fx.service.Status()
	assert.Zero(t, status.ChecksExecuted)
	assert.Contains(t, status.LastError, "10 samples")
}

func TestService_RunCheckSourceError(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	reference := gen.Generate(600)

	fx := newFixture(t, monitor.Config{MinSamples: 100}, reference, reference, nil)
	fx.source.err = errors.New("window query timed out")

	report, err := fx.service.RunCheck(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.False(t, errors.Is(err, errors.ErrDatasetEmpty))
	assert.NotEmpty(t, fx.service.Status().LastError)
}

func TestService_PerformanceDrift(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	reference := gen.Generate(600)

	baseline := map[string]float64{"accuracy": 0.95, "precision": 0.5, "recall": 0.5}
	perf := drift.NewPerformanceDetector(zap.NewNop(), amountClassifier{}, baseline, drift.DefaultPerformanceThreshold)

	t.Run("EvaluatedWithBothClasses", func(t *testing.T) {
		fx := newFixture(t, monitor.Config{MinSamples: 100}, reference, reference, perf)

		report, err := fx.service.RunCheck(context.Background())
		require.NoError(t, err)
		require.NotNil(t, report.PerformanceDrift)
		assert.True(t, report.PerformanceDrift.Evaluated)
	})

	t.Run("SkippedWhenWindowIsSingleClass", func(t *testing.T) {
		unlabeled := make([]models.Transaction, len(reference))
		copy(unlabeled, reference)
		for i := range unlabeled {
			unlabeled[i].IsFraud = false
		}
		fx := newFixture(t, monitor.Config{MinSamples: 100}, unlabeled, reference, perf)

		report, err := fx.service.RunCheck(context.Background())
		require.NoError(t, err)
		assert.Nil(t, report.PerformanceDrift)
	})
}

func TestService_TriggerRetraining(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	reference := gen.Generate(600)

	fx := newFixture(t, monitor.Config{MinSamples: 100}, reference, reference, nil)

	first, err := fx.service.TriggerRetraining(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Triggered)
	assert.Equal(t, retraining.ReasonManualTrigger, first.Reason)
	require.NotNil(t, first.Record)
	assert.Equal(t, retraining.StatusCompleted, first.Record.Status)
	assert.Equal(t, "v1", first.Record.NewModelVersion)

	// A second manual trigger lands inside the cooldown window.
	second, err := fx.service.TriggerRetraining(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Triggered)
	assert.Equal(t, retraining.ReasonCooldownActive, second.Reason)
	assert.EqualValues(t, 1, fx.trained.Load())
}

func TestService_CheckRecords(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	ds := gen.GenerateDataset(1200, 400, datagen.WithDriftShift(datagen.DriftSevere))

	fx := newFixture(t, monitor.Config{MinSamples: 100}, ds.Reference, ds.Reference, nil)

	summary, err := fx.service.CheckRecords(ds.Current)
	require.NoError(t, err)
	assert.True(t, summary.OverallDriftDetected)
	assert.Equal(t, 100.0, summary.DriftPercentage)

	// The ad-hoc path publishes nothing and leaves the gate alone.
	assert.Zero(t, fx.trained.Load())
	assert.Zero(t, fx.service.Status().ChecksExecuted)

	_, err = fx.service.CheckRecords(nil)
	assert.True(t, errors.Is(err, errors.ErrDatasetEmpty))
}

func TestService_TriggerRetrainingUnconfigured(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	reference := gen.Generate(600)

	logger := zap.NewNop()
	extractor := features.NewExtractor(logger)
	extractor.FitReference(reference)
	refMatrix := extractor.BatchFeatures(reference)
	service, err := monitor.NewService(logger, monitor.Config{MinSamples: 100}, monitor.Deps{
		Detector:  drift.NewDetector(logger, drift.DatasetFromMatrix("reference", refMatrix.Names, refMatrix.Rows), nil, 0),
		Alerts:    alerting.NewManager(logger, alerting.NewSystem(alerting.Thresholds{})),
		Source:    &windowSource{txns: reference},
		Extractor: extractor,
	})
	require.NoError(t, err)

	_, err = service.TriggerRetraining(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestService_NewServiceValidation(t *testing.T) {
	_, err := monitor.NewService(zap.NewNop(), monitor.Config{}, monitor.Deps{})
	require.Error(t, err)
}

func TestService_StartStop(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 11})
	reference := gen.Generate(200)

	fx := newFixture(t, monitor.Config{CheckInterval: 20 * time.Millisecond, MinSamples: 50}, reference, reference, nil)

	require.NoError(t, fx.service.Start(context.Background()))
	assert.Error(t, fx.service.Start(context.Background()))
	assert.True(t, fx.service.Status().Running)

	assert.Eventually(t, func() bool {
		return fx.service.Status().ChecksExecuted >= 1
	}, 5*time.Second, 10*time.Millisecond)

	fx.service.Stop()
	assert.False(t, fx.service.Status().Running)

	// Stop is idempotent.
	fx.service.Stop()
}
