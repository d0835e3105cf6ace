// Package livestore persists the currently-active translations served to end
// users, plus the point-in-time snapshots taken before an apply so a
// migration can be rolled back. The live tables are mutated only by the
// migration applier (bulk upsert) and the rollback restore path.
package livestore

import (
	"time"

	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// TranslationKey is one translation key belonging to exactly one interface
// group in one environment.
type TranslationKey struct {
	ID          uint           `gorm:"primaryKey;column:id;autoIncrement"`
	Environment string         `gorm:"column:environment;uniqueIndex:idx_tk_identity,priority:1;default:default;not null"`
	Group       interfaces.Tag `gorm:"column:key_group;uniqueIndex:idx_tk_identity,priority:2;not null"`
	Key         string         `gorm:"column:translation_key;uniqueIndex:idx_tk_identity,priority:3;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	Values []TranslationValue `gorm:"foreignKey:KeyID"`
}

// TableName returns the GORM table name.
func (TranslationKey) TableName() string { return "translation_keys" }

// TranslationValue is a locale-scoped value for one key.
type TranslationValue struct {
	ID        uint      `gorm:"primaryKey;column:id;autoIncrement"`
	KeyID     uint      `gorm:"column:key_id;uniqueIndex:idx_tv_key_locale,priority:1;not null"`
	Locale    string    `gorm:"column:locale;uniqueIndex:idx_tv_key_locale,priority:2;not null"`
	Value     string    `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (TranslationValue) TableName() string { return "translation_values" }

// SnapshotRow is one (key, locale, value) captured before an apply, owned by
// the migration record that triggered the backup. Rows with Existed=false
// mark pairs the apply would insert, so a rollback knows to delete them.
type SnapshotRow struct {
	ID                uint           `gorm:"primaryKey;column:id;autoIncrement"`
	MigrationRecordID string         `gorm:"column:migration_record_id;index;type:varchar(36);not null"`
	Environment       string         `gorm:"column:environment;default:default;not null"`
	Group             interfaces.Tag `gorm:"column:key_group;not null"`
	Key               string         `gorm:"column:translation_key;not null"`
	Locale            string         `gorm:"column:locale;not null"`
	Value             string         `gorm:"column:value;type:text"`
	Existed           bool           `gorm:"column:existed;not null"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (SnapshotRow) TableName() string { return "translation_snapshots" }
