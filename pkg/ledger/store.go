package ledger

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// ErrNotFound is returned when a migration record does not exist.
var ErrNotFound = errors.New("migration record not found")

// Store provides database operations for migration records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new ledger Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the translation_migrations table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&MigrationRecord{})
}

// CreateIfAbsent inserts the record unless a record with the same
// (environment, interface, filename, version) already exists. Returns true
// when a new record was inserted. Safe under concurrent discovery thanks to
// the unique index backing the identity.
func (s *Store) CreateIfAbsent(record *MigrationRecord) (bool, error) {
	if record.Environment == "" {
		record.Environment = "default"
	}
	if record.Status == "" {
		record.Status = StatusPending
	}

	var existing MigrationRecord
	err := s.db.Where(
		"environment = ? AND interface_origin = ? AND filename = ? AND version = ?",
		record.Environment, record.InterfaceOrigin, record.Filename, record.Version,
	).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, fmt.Errorf("check existing migration: %w", err)
	}

	if err := s.db.Create(record).Error; err != nil {
		// A concurrent discoverer may have inserted the same identity
		// between the check and the create; treat that as "already known".
		var race MigrationRecord
		lookupErr := s.db.Where(
			"environment = ? AND interface_origin = ? AND filename = ? AND version = ?",
			record.Environment, record.InterfaceOrigin, record.Filename, record.Version,
		).First(&race).Error
		if lookupErr == nil {
			return false, nil
		}
		return false, fmt.Errorf("create migration record: %w", err)
	}
	return true, nil
}

// Get retrieves a record by id.
func (s *Store) Get(id string) (*MigrationRecord, error) {
	var record MigrationRecord
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get migration record: %w", err)
	}
	return &record, nil
}

// ListFilter defines filters for listing migration records.
type ListFilter struct {
	Environment string
	Interface   interfaces.Tag
	Status      Status
	BatchNumber string
}

// List returns paginated records matching the filter, newest first.
func (s *Store) List(filter ListFilter, pageSize int, pageToken string) ([]MigrationRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	buildQuery := func(base *gorm.DB) *gorm.DB {
		q := base.Model(&MigrationRecord{})
		if filter.Environment != "" {
			q = q.Where("environment = ?", filter.Environment)
		}
		if filter.Interface != "" {
			q = q.Where("interface_origin = ?", filter.Interface)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.BatchNumber != "" {
			q = q.Where("batch_number = ?", filter.BatchNumber)
		}
		return q
	}

	var totalSize int64
	if err := buildQuery(s.db).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count migration records: %w", err)
	}

	query := buildQuery(s.db).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []MigrationRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list migration records: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// transition performs a compare-and-swap status update: the row is only
// updated when its current status equals from, so two concurrent callers
// racing on the same record see exactly one winner.
func (s *Store) transition(id string, from, to Status, updates map[string]any) error {
	if !ValidTransition(from, to) {
		return &TransitionError{RecordID: id, From: from, To: to}
	}

	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	result := s.db.Model(&MigrationRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("transition migration %s to %s: %w", id, to, result.Error)
	}
	if result.RowsAffected == 0 {
		record, err := s.Get(id)
		if err != nil {
			return err
		}
		return &TransitionError{RecordID: id, From: record.Status, To: to}
	}
	return nil
}

// BeginProcessing transitions pending → processing. This is the at-most-once
// apply guard: exactly one of any number of concurrent callers succeeds.
func (s *Store) BeginProcessing(id string) error {
	return s.transition(id, StatusPending, StatusProcessing, nil)
}

// MarkCompleted transitions processing → completed and stamps the execution
// time and metadata.
func (s *Store) MarkCompleted(id string, meta Metadata) error {
	now := time.Now()
	return s.transition(id, StatusProcessing, StatusCompleted, map[string]any{
		"executed_at":   now,
		"error_message": "",
		"metadata":      meta,
	})
}

// MarkFailed transitions processing → failed with a diagnostic message.
func (s *Store) MarkFailed(id, errMsg string, meta Metadata) error {
	return s.transition(id, StatusProcessing, StatusFailed, map[string]any{
		"error_message": errMsg,
		"metadata":      meta,
	})
}

// MarkRolledBack transitions completed → rolled_back and stamps the time.
func (s *Store) MarkRolledBack(id string) error {
	now := time.Now()
	return s.transition(id, StatusCompleted, StatusRolledBack, map[string]any{
		"rolled_back_at": now,
	})
}

// ResetToPending transitions failed → pending, clearing the diagnostic.
// This is the explicit operator action required before a retry.
func (s *Store) ResetToPending(id string) error {
	return s.transition(id, StatusFailed, StatusPending, map[string]any{
		"error_message": "",
	})
}

// SetBatchNumber stamps the batch grouping identifier on a record.
func (s *Store) SetBatchNumber(id, batch string) error {
	err := s.db.Model(&MigrationRecord{}).Where("id = ?", id).
		Update("batch_number", batch).Error
	if err != nil {
		return fmt.Errorf("set batch number: %w", err)
	}
	return nil
}

// UpdateMeta loads, mutates, and saves a record's metadata in one
// transaction. Used for facts that do not accompany a status transition,
// such as preview summaries.
func (s *Store) UpdateMeta(id string, mutate func(*Metadata)) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var record MigrationRecord
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return fmt.Errorf("load migration record: %w", err)
		}
		mutate(&record.Meta)
		if err := tx.Model(&MigrationRecord{}).Where("id = ?", id).
			Update("metadata", record.Meta).Error; err != nil {
			return fmt.Errorf("update migration metadata: %w", err)
		}
		return nil
	})
}

// FailStaleProcessing transitions processing records whose last update is
// older than age to failed with the given diagnostic. Guards against records
// stuck in processing after a crash mid-apply.
func (s *Store) FailStaleProcessing(age time.Duration, errMsg string) (int64, error) {
	cutoff := time.Now().Add(-age)
	result := s.db.Model(&MigrationRecord{}).
		Where("status = ? AND updated_at < ?", StatusProcessing, cutoff).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": errMsg,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("fail stale processing records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
