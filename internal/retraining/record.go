// Package retraining owns the retraining decision gate: the stateful policy
// that turns alert severity into an actual retraining run, enforcing a
// cooldown between runs through an append-only history.
package retraining

import "time"

// Status of a retraining record.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record captures one retraining trigger and its outcome. Records are
// append-only; the most recent trigger timestamp gates future triggers.
type Record struct {
	ID                  uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TriggerTimestamp    time.Time  `gorm:"not null;index" json:"trigger_timestamp"`
	TriggerReason       string     `gorm:"type:varchar(128);not null" json:"trigger_reason"`
	Status              Status     `gorm:"type:varchar(16);not null" json:"status"`
	CompletionTimestamp *time.Time `json:"completion_timestamp,omitempty"`
	NewModelVersion     string     `gorm:"type:varchar(32)" json:"new_model_version,omitempty"`
	TrainingSamples     int        `json:"training_samples,omitempty"`
	Error               string     `gorm:"type:text" json:"error,omitempty"`
}

// TableName implements the gorm table naming convention.
func (Record) TableName() string {
	return "retraining_records"
}
