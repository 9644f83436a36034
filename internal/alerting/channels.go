package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Channel delivers an alert report to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, report AlertReport) error
}

// LogChannel writes alerts to the structured log. It always succeeds and is
// the default delivery path when no external channel is configured.
type LogChannel struct {
	logger *zap.Logger
}

func NewLogChannel(logger *zap.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(_ context.Context, report AlertReport) error {
	c.logger.Warn("drift alert",
		zap.String("dataset", report.DatasetName),
		zap.String("severity", string(report.OverallSeverity)),
		zap.Int("features_affected", report.DataDrift.FeaturesAffected),
		zap.Int("total_features", report.DataDrift.TotalFeatures),
		zap.Float64("drift_percentage", report.DataDrift.DriftPercentage),
		zap.Strings("recommendations", report.Recommendations))
	return nil
}

// WebhookChannel POSTs the full report as JSON to a configured endpoint.
type WebhookChannel struct {
	url    string
	client *http.Client
}

func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(ctx context.Context, report AlertReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode alert report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SlackChannel posts a short text summary to a Slack incoming webhook.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
}

func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, report AlertReport) error {
	text := fmt.Sprintf("*%s* drift alert for %s: %d of %d features drifted (%.1f%%)",
		report.OverallSeverity,
		report.DatasetName,
		report.DataDrift.FeaturesAffected,
		report.DataDrift.TotalFeatures,
		report.DataDrift.DriftPercentage)
	if report.PerformanceDrift != nil && report.PerformanceDrift.DriftDetected {
		text += fmt.Sprintf("\nPerformance drift in: %v", report.PerformanceDrift.AffectedMetrics)
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Record is the persisted form of a dispatched alert, kept for audit beyond
// the manager's in-memory window.
type Record struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp        time.Time `json:"timestamp" gorm:"index"`
	DatasetName      string    `json:"dataset_name" gorm:"type:varchar(100)"`
	Severity         string    `json:"severity" gorm:"type:varchar(10);index"`
	FeaturesAffected int       `json:"features_affected"`
	TotalFeatures    int       `json:"total_features"`
	DriftPercentage  float64   `json:"drift_percentage"`
	Report           []byte    `json:"-" gorm:"type:blob"`
}

// TableName specifies the table name for Record
func (Record) TableName() string {
	return "alert_records"
}

// StoreChannel persists dispatched alerts to the database.
type StoreChannel struct {
	db *gorm.DB
}

func NewStoreChannel(db *gorm.DB) *StoreChannel {
	return &StoreChannel{db: db}
}

func (c *StoreChannel) Name() string { return "store" }

func (c *StoreChannel) Send(ctx context.Context, report AlertReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode alert report: %w", err)
	}
	record := Record{
		Timestamp:        report.Timestamp,
		DatasetName:      report.DatasetName,
		Severity:         string(report.OverallSeverity),
		FeaturesAffected: report.DataDrift.FeaturesAffected,
		TotalFeatures:    report.DataDrift.TotalFeatures,
		DriftPercentage:  report.DataDrift.DriftPercentage,
		Report:           body,
	}
	if err := c.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("persist alert record: %w", err)
	}
	return nil
}
