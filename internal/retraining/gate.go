package retraining

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/internal/alerting"
	"github.com/velora-tech/fraudsight/pkg/metrics"
)

// cooldown is the minimum spacing between retraining triggers. Hardcoded
// policy: any record in the history, failed ones included, starts the clock.
const cooldown = 24 * time.Hour

// highDriftTriggerPercent asks for retraining on sheer drift breadth even
// when the severity ladder did not reach CRITICAL.
const highDriftTriggerPercent = 60.0

// Decision reason strings returned by the gate.
const (
	ReasonCooldownActive   = "cooldown active"
	ReasonCriticalDrift    = "critical drift"
	ReasonHighDriftPct     = "high drift percentage"
	ReasonWithinThresholds = "within thresholds"
	ReasonManualTrigger    = "manual trigger"
)

// TrainFunc runs one retraining job for the version the gate assigned. It
// returns the number of training samples used.
type TrainFunc func(ctx context.Context, version string) (trainingSamples int, err error)

// Decision is the outcome of a combined check-and-retrain call.
type Decision struct {
	Triggered bool    `json:"triggered"`
	Reason    string  `json:"reason"`
	Record    *Record `json:"record,omitempty"`
}

// Gate decides whether drift warrants retraining and, when it does, runs the
// training job and appends the outcome to the history. The cooldown check
// and the history append happen under one lock, so two evaluations cannot
// both slip past the 24-hour gate.
type Gate struct {
	mu      sync.Mutex
	logger  *zap.Logger
	history History
}

// NewGate builds a Gate over the given history store.
func NewGate(logger *zap.Logger, history History) *Gate {
	return &Gate{logger: logger, history: history}
}

// History returns the underlying record store.
func (g *Gate) History() History { return g.history }

// ShouldRetrain evaluates the retraining policy for an alert report without
// executing anything. The cooldown takes precedence over every other
// condition.
func (g *Gate) ShouldRetrain(report alerting.AlertReport) (bool, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shouldRetrainLocked(report)
}

func (g *Gate) shouldRetrainLocked(report alerting.AlertReport) (bool, string, error) {
	last, err := g.history.Last()
	if err != nil {
		return false, "", err
	}
	if last != nil && time.Since(last.TriggerTimestamp) < cooldown {
		return false, ReasonCooldownActive, nil
	}
	if report.OverallSeverity == alerting.SeverityCritical {
		return true, ReasonCriticalDrift, nil
	}
	if report.DataDrift.DriftPercentage > highDriftTriggerPercent {
		return true, ReasonHighDriftPct, nil
	}
	return false, ReasonWithinThresholds, nil
}

// ExecuteRetraining runs the training job for the given trigger reason and
// appends the outcome. The new model version is v{n+1} where n is the
// current history length; a failed run is recorded without a version, so the
// next successful run accounts for the failed slot.
func (g *Gate) ExecuteRetraining(ctx context.Context, reason string, job TrainFunc) (Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.executeLocked(ctx, reason, job)
}

func (g *Gate) executeLocked(ctx context.Context, reason string, job TrainFunc) (Record, error) {
	count, err := g.history.Count()
	if err != nil {
		return Record{}, err
	}
	version := fmt.Sprintf("v%d", count+1)

	g.logger.Info("starting retraining",
		zap.String("reason", reason),
		zap.String("version", version))

	record := Record{
		TriggerTimestamp: time.Now().UTC(),
		TriggerReason:    reason,
		Status:           StatusInitiated,
	}

	samples, jobErr := job(ctx, version)
	completed := time.Now().UTC()
	record.CompletionTimestamp = &completed
	if jobErr != nil {
		record.Status = StatusFailed
		record.Error = jobErr.Error()
		metrics.RetrainingRuns.WithLabelValues("failed").Inc()
		g.logger.Error("retraining failed", zap.String("version", version), zap.Error(jobErr))
	} else {
		record.Status = StatusCompleted
		record.NewModelVersion = version
		record.TrainingSamples = samples
		metrics.RetrainingRuns.WithLabelValues("completed").Inc()
		g.logger.Info("retraining completed",
			zap.String("version", version),
			zap.Int("training_samples", samples))
	}

	if err := g.history.Append(&record); err != nil {
		return record, err
	}
	return record, jobErr
}

// TriggerManual runs the job for an operator-initiated trigger. The drift
// conditions are bypassed but the cooldown is not: a manual trigger inside
// the cooldown window is refused.
func (g *Gate) TriggerManual(ctx context.Context, job TrainFunc) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, err := g.history.Last()
	if err != nil {
		return Decision{}, err
	}
	if last != nil && time.Since(last.TriggerTimestamp) < cooldown {
		metrics.RetrainingDecisions.WithLabelValues(ReasonCooldownActive).Inc()
		g.logger.Info("manual retraining refused", zap.String("reason", ReasonCooldownActive))
		return Decision{Triggered: false, Reason: ReasonCooldownActive}, nil
	}

	metrics.RetrainingDecisions.WithLabelValues(ReasonManualTrigger).Inc()
	record, err := g.executeLocked(ctx, ReasonManualTrigger, job)
	return Decision{Triggered: true, Reason: ReasonManualTrigger, Record: &record}, err
}

// MaybeRetrain checks the policy and, when it fires, runs the job. Check and
// execution hold the same lock, making the whole sequence atomic against
// concurrent evaluations.
func (g *Gate) MaybeRetrain(ctx context.Context, report alerting.AlertReport, job TrainFunc) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	should, reason, err := g.shouldRetrainLocked(report)
	if err != nil {
		return Decision{}, err
	}
	metrics.RetrainingDecisions.WithLabelValues(reason).Inc()
	if !should {
		g.logger.Debug("retraining not triggered", zap.String("reason", reason))
		return Decision{Triggered: false, Reason: reason}, nil
	}

	record, err := g.executeLocked(ctx, reason, job)
	if err != nil {
		return Decision{Triggered: true, Reason: reason, Record: &record}, err
	}
	return Decision{Triggered: true, Reason: reason, Record: &record}, nil
}
