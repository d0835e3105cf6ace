// Package audit keeps an immutable trail of every engine operation:
// discoveries, applies, rollbacks, retries, and their outcomes. Rows are
// append-only; retention is handled by an age-based purge.
package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EventRecord is one immutable audit entry.
type EventRecord struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Environment string    `gorm:"column:environment;index:idx_audit_env_time,priority:1;default:default;not null"`
	EventType   string    `gorm:"column:event_type;index:idx_audit_type_time,priority:1;not null"`
	Actor       string    `gorm:"column:actor;index;not null"`
	RecordID    string    `gorm:"column:record_id;index"`
	Interface   string    `gorm:"column:interface_origin"`
	Outcome     string    `gorm:"column:outcome;not null"` // success, failure, denied
	Message     string    `gorm:"column:message"`
	CreatedAt   time.Time `gorm:"column:created_at;index:idx_audit_env_time,priority:2;index:idx_audit_type_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (EventRecord) TableName() string { return "migration_audit_events" }

// Store provides append and query operations for audit events.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new audit Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the audit table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&EventRecord{})
}

// Append writes one audit event. Audit failures must not break the audited
// operation, so callers usually ignore the returned error after logging it.
func (s *Store) Append(event *EventRecord) error {
	if event.Environment == "" {
		event.Environment = "default"
	}
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Get returns one event by ID, or nil when it does not exist.
func (s *Store) Get(id string) (*EventRecord, error) {
	var record EventRecord
	err := s.db.First(&record, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return &record, nil
}

// ListFilter defines filters for listing audit events.
type ListFilter struct {
	Environment string
	EventType   string
	RecordID    string
	Actor       string
}

// List returns paginated audit events matching the filter, newest first.
func (s *Store) List(filter ListFilter, pageSize int, pageToken string) ([]EventRecord, string, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	q := s.db.Model(&EventRecord{})
	if filter.Environment != "" {
		q = q.Where("environment = ?", filter.Environment)
	}
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if filter.RecordID != "" {
		q = q.Where("record_id = ?", filter.RecordID)
	}
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}

	q = q.Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		q = q.Where("created_at < ?", t)
	}

	var records []EventRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, "", fmt.Errorf("list audit events: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}
	return records, nextToken, nil
}

// PurgeOlderThan deletes events older than the cutoff and returns the count.
func (s *Store) PurgeOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&EventRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge audit events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
