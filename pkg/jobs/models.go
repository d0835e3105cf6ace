package jobs

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobState represents the lifecycle state of an apply job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCanceled  JobState = "canceled"
)

// Operation is the kind of work a job performs.
type Operation string

const (
	OpApply       Operation = "apply"        // Apply one record.
	OpApplyBatch  Operation = "apply_batch"  // Apply a set of records as a batch.
	OpRetryFailed Operation = "retry_failed" // Sweep retryable failed records.
)

// StringList is a JSON-encoded list of record ids stored in one column.
type StringList []string

// Scan implements sql.Scanner for StringList.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
	if len(bytes) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer for StringList.
func (l StringList) Value() (driver.Value, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ApplyJob is the GORM model for an asynchronous apply work item.
type ApplyJob struct {
	ID               string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	Environment      string     `gorm:"column:environment;index:idx_job_env_state,priority:1;default:default;not null"`
	Operation        Operation  `gorm:"column:operation;index:idx_job_op_state,priority:1;not null"`
	RecordID         string     `gorm:"column:record_id;index"`
	RecordIDs        StringList `gorm:"column:record_ids;type:text"`
	RequestedBy      string     `gorm:"column:requested_by;not null"`
	RequestedAt      time.Time  `gorm:"column:requested_at;not null"`
	State            JobState   `gorm:"column:state;index:idx_job_env_state,priority:2;index:idx_job_op_state,priority:2;index:idx_job_state;not null;default:queued"`
	Message          string     `gorm:"column:message"`
	StartedAt        *time.Time `gorm:"column:started_at"`
	FinishedAt       *time.Time `gorm:"column:finished_at"`
	AttemptCount     int        `gorm:"column:attempt_count;default:0"`
	LastError        string     `gorm:"column:last_error"`
	IdempotencyKey   string     `gorm:"column:idempotency_key;uniqueIndex:idx_job_idemp_key"`
	RowsWritten      int        `gorm:"column:rows_written"`
	RecordsSucceeded int        `gorm:"column:records_succeeded"`
	RecordsFailed    int        `gorm:"column:records_failed"`
	DurationMs       int64      `gorm:"column:duration_ms"`
}

// TableName returns the GORM table name.
func (ApplyJob) TableName() string { return "translation_apply_jobs" }

// IsTerminal returns true if the job is in a terminal state.
func (j *ApplyJob) IsTerminal() bool {
	switch j.State {
	case JobStateSucceeded, JobStateFailed, JobStateCanceled:
		return true
	}
	return false
}
