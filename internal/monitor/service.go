// Package monitor runs the periodic drift evaluation cycle: gather the
// current observation window, detect data and performance drift, publish
// alerts, and consult the retraining gate.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/internal/alerting"
	"github.com/velora-tech/fraudsight/internal/drift"
	"github.com/velora-tech/fraudsight/internal/features"
	"github.com/velora-tech/fraudsight/internal/inference"
	"github.com/velora-tech/fraudsight/internal/retraining"
	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/models"
)

const defaultDatasetName = "current_window"

// SampleSource supplies the current observation window for a drift check.
type SampleSource interface {
	CurrentWindow(ctx context.Context) ([]models.Transaction, error)
}

// SampleSourceFunc adapts a function to the SampleSource interface.
type SampleSourceFunc func(ctx context.Context) ([]models.Transaction, error)

// CurrentWindow implements SampleSource.
func (f SampleSourceFunc) CurrentWindow(ctx context.Context) ([]models.Transaction, error) {
	return f(ctx)
}

// Config controls the monitoring cycle.
type Config struct {
	// CheckInterval is the ticker period for automatic checks.
	CheckInterval time.Duration
	// MinSamples is the smallest window a check will run on.
	MinSamples int
	// DatasetName labels the evaluated window in reports and logs.
	DatasetName string
	// AutoRetrain executes the training job when the gate fires. When false
	// the gate is consulted and its decision logged, nothing more.
	AutoRetrain bool
}

// Deps wires the service to the rest of the pipeline. Detector, Alerts,
// Source, and Extractor are required; the others degrade gracefully.
type Deps struct {
	Detector    *drift.Detector
	Performance *drift.PerformanceDetector
	Alerts      *alerting.Manager
	Gate        *retraining.Gate
	Source      SampleSource
	Extractor   *features.Extractor
	Scorer      *inference.Scorer
	Train       retraining.TrainFunc
}

// Status is a point-in-time snapshot of the monitoring service.
type Status struct {
	Running           bool              `json:"running"`
	CheckInterval     string            `json:"check_interval"`
	MinSamples        int               `json:"min_samples"`
	AutoRetrain       bool              `json:"auto_retrain"`
	ChecksExecuted    int64             `json:"checks_executed"`
	LastCheck         time.Time         `json:"last_check,omitempty"`
	LastSeverity      alerting.Severity `json:"last_severity,omitempty"`
	LastDriftPercent  float64           `json:"last_drift_percentage"`
	LastError         string            `json:"last_error,omitempty"`
	ModelVersion      string            `json:"model_version,omitempty"`
	ReferenceRows     int               `json:"reference_rows"`
	MonitoredFeatures int               `json:"monitored_features"`
}

// Service owns the drift monitoring loop.
type Service struct {
	logger *zap.Logger
	cfg    Config

	alerts    *alerting.Manager
	gate      *retraining.Gate
	source    SampleSource
	extractor *features.Extractor
	scorer    *inference.Scorer
	train     retraining.TrainFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	stateMu      sync.RWMutex
	detector     *drift.Detector
	performance  *drift.PerformanceDetector
	checks       int64
	lastCheck    time.Time
	lastSeverity alerting.Severity
	lastDriftPct float64
	lastError    string
}

// NewService builds the monitoring service.
func NewService(logger *zap.Logger, cfg Config, deps Deps) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Detector == nil {
		return nil, errors.New("monitor requires a drift detector")
	}
	if deps.Alerts == nil {
		return nil, errors.New("monitor requires an alert manager")
	}
	if deps.Source == nil {
		return nil, errors.New("monitor requires a sample source")
	}
	if deps.Extractor == nil {
		return nil, errors.New("monitor requires a feature extractor")
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	if cfg.DatasetName == "" {
		cfg.DatasetName = defaultDatasetName
	}
	return &Service{
		logger:      logger,
		cfg:         cfg,
		alerts:      deps.Alerts,
		gate:        deps.Gate,
		source:      deps.Source,
		extractor:   deps.Extractor,
		scorer:      deps.Scorer,
		train:       deps.Train,
		detector:    deps.Detector,
		performance: deps.Performance,
	}, nil
}

// Start launches the periodic check loop until Stop or context cancellation.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(runCtx, s.done)
	s.logger.Info("drift monitor started",
		zap.Duration("check_interval", s.cfg.CheckInterval),
		zap.Int("min_samples", s.cfg.MinSamples),
		zap.Bool("auto_retrain", s.cfg.AutoRetrain))
	return nil
}

// Stop halts the check loop.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("drift monitor stopped")
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunCheck(ctx); err != nil {
				if errors.Is(err, errors.ErrDatasetEmpty) {
					s.logger.Info("drift check skipped", zap.Error(err))
				} else {
					s.logger.Error("drift check failed", zap.Error(err))
				}
			}
		}
	}
}

// RunCheck executes one full monitoring cycle and returns the published
// report. Windows below MinSamples are rejected before any detection runs.
func (s *Service) RunCheck(ctx context.Context) (*alerting.AlertReport, error) {
	txns, err := s.source.CurrentWindow(ctx)
	if err != nil {
		s.recordFailure(err)
		return nil, errors.New("gather current window").Wrap(err)
	}
	if len(txns) < s.cfg.MinSamples {
		err := errors.NewWithKind(errors.KindDatasetEmpty,
			fmt.Sprintf("window holds %d samples, %d required", len(txns), s.cfg.MinSamples))
		s.recordFailure(err)
		return nil, err
	}

	matrix := s.extractor.BatchFeatures(txns)
	current := drift.DatasetFromMatrix(s.cfg.DatasetName, matrix.Names, matrix.Rows)

	detector, performance := s.detectors()
	summary := detector.DetectDatasetDrift(current)

	var perfResult *drift.PerformanceDriftResult
	if performance != nil {
		labels := features.Labels(txns)
		if hasBothClasses(labels) {
			r := performance.DetectPerformanceDrift(matrix.Rows, labels)
			perfResult = &r
		} else {
			s.logger.Debug("performance drift skipped, window labels are single-class")
		}
	}

	report := s.alerts.Publish(ctx, summary, perfResult, s.cfg.DatasetName)
	s.consultGate(ctx, report)
	s.recordSuccess(report)
	return &report, nil
}

// consultGate asks the retraining gate about the report and, with
// AutoRetrain enabled, lets it execute the training job.
func (s *Service) consultGate(ctx context.Context, report alerting.AlertReport) {
	if s.gate == nil {
		return
	}
	if s.cfg.AutoRetrain && s.train != nil {
		decision, err := s.gate.MaybeRetrain(ctx, report, s.train)
		if err != nil {
			s.logger.Error("retraining evaluation failed", zap.Error(err))
			return
		}
		if decision.Triggered {
			s.logger.Info("retraining executed",
				zap.String("reason", decision.Reason),
				zap.String("new_version", decision.Record.NewModelVersion),
				zap.String("status", string(decision.Record.Status)))
		}
		return
	}

	should, reason, err := s.gate.ShouldRetrain(report)
	if err != nil {
		s.logger.Error("retraining evaluation failed", zap.Error(err))
		return
	}
	s.logger.Info("retraining gate consulted",
		zap.Bool("should_retrain", should),
		zap.String("reason", reason))
}

// TriggerRetraining runs the training job on operator demand. The gate's
// drift conditions are bypassed but its cooldown is not.
func (s *Service) TriggerRetraining(ctx context.Context) (retraining.Decision, error) {
	if s.gate == nil || s.train == nil {
		return retraining.Decision{}, errors.NewWithKind(errors.KindValidation, "retraining is not configured")
	}
	return s.gate.TriggerManual(ctx, s.train)
}

// CheckRecords runs drift detection over explicitly supplied transactions.
// Nothing is published and the gate is not consulted; the caller gets the raw
// summary back.
func (s *Service) CheckRecords(txns []models.Transaction) (drift.DatasetDriftSummary, error) {
	if len(txns) == 0 {
		return drift.DatasetDriftSummary{}, errors.ErrDatasetEmpty
	}
	matrix := s.extractor.BatchFeatures(txns)
	current := drift.DatasetFromMatrix("adhoc", matrix.Names, matrix.Rows)
	detector, _ := s.detectors()
	return detector.DetectDatasetDrift(current), nil
}

// SetDetector swaps the drift detector, used after retraining refreshes the
// reference window.
func (s *Service) SetDetector(d *drift.Detector) {
	s.stateMu.Lock()
	s.detector = d
	s.stateMu.Unlock()
}

// SetPerformanceDetector swaps the performance detector, used after
// retraining refreshes the model baseline.
func (s *Service) SetPerformanceDetector(p *drift.PerformanceDetector) {
	s.stateMu.Lock()
	s.performance = p
	s.stateMu.Unlock()
}

func (s *Service) detectors() (*drift.Detector, *drift.PerformanceDetector) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.detector, s.performance
}

// Status returns a snapshot for health and dashboard endpoints.
func (s *Service) Status() Status {
	s.mu.Lock()
	running := s.cancel != nil
	s.mu.Unlock()

	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	st := Status{
		Running:           running,
		CheckInterval:     s.cfg.CheckInterval.String(),
		MinSamples:        s.cfg.MinSamples,
		AutoRetrain:       s.cfg.AutoRetrain,
		ChecksExecuted:    s.checks,
		LastCheck:         s.lastCheck,
		LastSeverity:      s.lastSeverity,
		LastDriftPercent:  s.lastDriftPct,
		LastError:         s.lastError,
		ReferenceRows:     s.detector.Reference().Rows(),
		MonitoredFeatures: len(s.detector.SelectedFeatures()),
	}
	if s.scorer != nil {
		st.ModelVersion = s.scorer.ModelVersion()
	}
	return st
}

func (s *Service) recordSuccess(report alerting.AlertReport) {
	s.stateMu.Lock()
	s.checks++
	s.lastCheck = time.Now().UTC()
	s.lastSeverity = report.OverallSeverity
	s.lastDriftPct = report.DataDrift.DriftPercentage
	s.lastError = ""
	s.stateMu.Unlock()
}

func (s *Service) recordFailure(err error) {
	s.stateMu.Lock()
	s.lastError = err.Error()
	s.stateMu.Unlock()
}

func hasBothClasses(y []int) bool {
	var pos, neg bool
	for _, v := range y {
		if v == 1 {
			pos = true
		} else {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}
