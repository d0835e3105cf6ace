// Package ledger persists the lifecycle of every discovered translation
// bundle migration. Records are append-only: they are created by discovery
// and mutated only through guarded status transitions, never deleted.
package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// Status is the persisted lifecycle status of a migration record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// Terminal reports whether the status admits no further apply.
func (s Status) Terminal() bool {
	return s == StatusRolledBack
}

// PreviewCounts summarizes the last diff computed for a record.
type PreviewCounts struct {
	TotalKeys   int `json:"totalKeys"`
	NewKeys     int `json:"newKeys"`
	UpdatedKeys int `json:"updatedKeys"`
	DeletedKeys int `json:"deletedKeys"`
}

// Metadata holds derived facts accumulated over a record's lifecycle.
// It is stored as a single JSON column but kept as a typed struct so new
// fields remain forward-compatible with old rows.
type Metadata struct {
	ManifestValid *bool          `json:"manifest_valid,omitempty"`
	BackupCreated bool           `json:"backup_created,omitempty"`
	AppliedAt     *time.Time     `json:"applied_at,omitempty"`
	LastPreview   *PreviewCounts `json:"last_preview,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Scan implements sql.Scanner for Metadata.
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for Metadata: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer for Metadata.
func (m Metadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MigrationRecord is one versioned bundle discovered for one interface in
// one environment. The checksum is copied from the manifest at discovery
// time and never recomputed from the ledger; integrity checks always hash
// the fetched bytes fresh and compare.
type MigrationRecord struct {
	ID              string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	Environment     string         `gorm:"column:environment;uniqueIndex:idx_mig_identity,priority:1;index:idx_mig_env_status,priority:1;default:default;not null"`
	InterfaceOrigin interfaces.Tag `gorm:"column:interface_origin;uniqueIndex:idx_mig_identity,priority:2;not null"`
	Filename        string         `gorm:"column:filename;uniqueIndex:idx_mig_identity,priority:3;not null"`
	Version         string         `gorm:"column:version;uniqueIndex:idx_mig_identity,priority:4;not null"`
	Checksum        string         `gorm:"column:checksum;not null"`
	Status          Status         `gorm:"column:status;index:idx_mig_env_status,priority:2;index:idx_mig_status;not null;default:pending"`
	BatchNumber     string         `gorm:"column:batch_number;index"`
	Meta            Metadata       `gorm:"column:metadata;type:text"`
	ExecutedAt      *time.Time     `gorm:"column:executed_at"`
	RolledBackAt    *time.Time     `gorm:"column:rolled_back_at"`
	ErrorMessage    string         `gorm:"column:error_message"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (MigrationRecord) TableName() string { return "translation_migrations" }
