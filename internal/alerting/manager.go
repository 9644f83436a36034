package alerting

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/internal/drift"
	"github.com/velora-tech/fraudsight/pkg/metrics"
)

// maxRecentReports bounds the in-memory report history.
const maxRecentReports = 100

// Manager owns the alert System and a set of delivery channels. Every
// evaluation produces and stores a report; reports above OK severity fan out
// to all channels, and a channel failure never blocks the others.
type Manager struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	system   *System
	channels []Channel
	recent   []AlertReport
}

// NewManager builds a Manager dispatching to the given channels.
func NewManager(logger *zap.Logger, system *System, channels ...Channel) *Manager {
	return &Manager{logger: logger, system: system, channels: channels}
}

// System returns the underlying alert evaluator.
func (m *Manager) System() *System { return m.system }

// Publish generates the alert report for a drift evaluation, records it and
// dispatches it to the configured channels when severity is above OK.
func (m *Manager) Publish(ctx context.Context, summary drift.DatasetDriftSummary, performance *drift.PerformanceDriftResult, datasetName string) AlertReport {
	report := m.system.GenerateAlertReport(summary, performance, datasetName)

	m.mu.Lock()
	m.recent = append(m.recent, report)
	if len(m.recent) > maxRecentReports {
		m.recent = m.recent[len(m.recent)-maxRecentReports:]
	}
	m.mu.Unlock()

	if report.OverallSeverity == SeverityOK {
		m.logger.Debug("drift within thresholds, no alert dispatched",
			zap.String("dataset", datasetName),
			zap.Float64("drift_percentage", report.DataDrift.DriftPercentage))
		return report
	}

	for _, ch := range m.channels {
		if err := ch.Send(ctx, report); err != nil {
			m.logger.Error("failed to deliver alert",
				zap.String("channel", ch.Name()),
				zap.String("severity", string(report.OverallSeverity)),
				zap.Error(err))
			continue
		}
		metrics.AlertsDispatched.WithLabelValues(string(report.OverallSeverity), ch.Name()).Inc()
	}
	return report
}

// Recent returns up to limit stored reports, newest first.
func (m *Manager) Recent(limit int) []AlertReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.recent) {
		limit = len(m.recent)
	}
	out := make([]AlertReport, 0, limit)
	for i := len(m.recent) - 1; i >= len(m.recent)-limit; i-- {
		out = append(out, m.recent[i])
	}
	return out
}
