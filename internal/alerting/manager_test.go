package alerting_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/velora-tech/fraudsight/internal/alerting"
	"github.com/velora-tech/fraudsight/internal/drift"
)

type captureChannel struct {
	name string
	sent []alerting.AlertReport
	fail bool
}

func (c *captureChannel) Name() string { return c.name }

func (c *captureChannel) Send(_ context.Context, report alerting.AlertReport) error {
	if c.fail {
		return fmt.Errorf("channel %s unavailable", c.name)
	}
	c.sent = append(c.sent, report)
	return nil
}

func TestManager_PublishDispatchesAboveOK(t *testing.T) {
	channel := &captureChannel{name: "capture"}
	manager := alerting.NewManager(zap.NewNop(), alerting.NewSystem(alerting.DefaultThresholds()), channel)

	report := manager.Publish(context.Background(), summaryWithPercentage(75), nil, "scoring-window")

	assert.Equal(t, alerting.SeverityCritical, report.OverallSeverity)
	require.Len(t, channel.sent, 1)
	assert.Equal(t, "scoring-window", channel.sent[0].DatasetName)
}

func TestManager_PublishSkipsChannelsWhenOK(t *testing.T) {
	channel := &captureChannel{name: "capture"}
	manager := alerting.NewManager(zap.NewNop(), alerting.NewSystem(alerting.DefaultThresholds()), channel)

	report := manager.Publish(context.Background(), summaryWithPercentage(5), nil, "scoring-window")

	assert.Equal(t, alerting.SeverityOK, report.OverallSeverity)
	assert.Empty(t, channel.sent)
	// the report is still recorded for the status API
	assert.Len(t, manager.Recent(10), 1)
}

func TestManager_ChannelFailureDoesNotBlockOthers(t *testing.T) {
	failing := &captureChannel{name: "down", fail: true}
	working := &captureChannel{name: "up"}
	manager := alerting.NewManager(zap.NewNop(), alerting.NewSystem(alerting.DefaultThresholds()), failing, working)

	manager.Publish(context.Background(), summaryWithPercentage(40), nil, "d")

	assert.Len(t, working.sent, 1)
}

func TestManager_RecentNewestFirst(t *testing.T) {
	manager := alerting.NewManager(zap.NewNop(), alerting.NewSystem(alerting.DefaultThresholds()))

	for _, pct := range []float64{5, 30, 70} {
		manager.Publish(context.Background(), summaryWithPercentage(pct), nil, "d")
	}

	recent := manager.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 70.0, recent[0].DataDrift.DriftPercentage)
	assert.Equal(t, 30.0, recent[1].DataDrift.DriftPercentage)

	all := manager.Recent(0)
	assert.Len(t, all, 3)
}

// gridSample draws a deterministic stratified normal sample via the quantile
// function, offset so two same-distribution samples interleave.
func gridSample(mu, sigma float64, n int, offset float64) []float64 {
	dist := distuv.Normal{Mu: mu, Sigma: sigma}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = dist.Quantile((float64(i) + offset) / float64(n))
	}
	return out
}

// TestDriftToRetrainingDecision walks the full path from raw samples to the
// retraining request for a stable window and then a heavily shifted one.
func TestDriftToRetrainingDecision(t *testing.T) {
	reference := drift.NewDataset("reference").
		AddNumericColumn("amount", gridSample(100, 20, 1000, 0.3))
	detector := drift.NewDetector(zap.NewNop(), reference, []string{"amount"}, 0.05)
	system := alerting.NewSystem(alerting.DefaultThresholds())

	t.Run("StableWindow", func(t *testing.T) {
		current := drift.NewDataset("current").
			AddNumericColumn("amount", gridSample(100, 20, 1000, 0.7))

		summary := detector.DetectDatasetDrift(current)
		assert.Equal(t, 1, summary.TotalFeaturesTested)
		assert.Equal(t, 0, summary.FeaturesWithDrift)
		assert.Equal(t, 0.0, summary.DriftPercentage)
		assert.False(t, summary.OverallDriftDetected)

		report := system.GenerateAlertReport(summary, nil, "current")
		assert.Equal(t, alerting.SeverityOK, report.OverallSeverity)
		assert.False(t, system.ShouldTriggerRetraining(report))
	})

	t.Run("ShiftedWindow", func(t *testing.T) {
		current := drift.NewDataset("current").
			AddNumericColumn("amount", gridSample(500, 20, 1000, 0.7))

		summary := detector.DetectDatasetDrift(current)
		assert.Equal(t, 1, summary.FeaturesWithDrift)
		assert.Equal(t, 100.0, summary.DriftPercentage)
		assert.True(t, summary.OverallDriftDetected)

		report := system.GenerateAlertReport(summary, nil, "current")
		assert.Equal(t, alerting.SeverityCritical, report.OverallSeverity)
		assert.True(t, system.ShouldTriggerRetraining(report))
	})
}
