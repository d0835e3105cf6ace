package livestore

import (
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// Store provides database operations for live translations and snapshots.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new live-store Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the translation and snapshot tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&TranslationKey{}); err != nil {
		return fmt.Errorf("auto-migrate translation_keys: %w", err)
	}
	if err := s.db.AutoMigrate(&TranslationValue{}); err != nil {
		return fmt.Errorf("auto-migrate translation_values: %w", err)
	}
	if err := s.db.AutoMigrate(&SnapshotRow{}); err != nil {
		return fmt.Errorf("auto-migrate translation_snapshots: %w", err)
	}
	return nil
}

// Values returns the current key → locale → value map for one interface
// group in one environment. Read-only.
func (s *Store) Values(environment string, group interfaces.Tag) (map[string]map[string]string, error) {
	if environment == "" {
		environment = "default"
	}

	var keys []TranslationKey
	err := s.db.Preload("Values").
		Where("environment = ? AND key_group = ?", environment, group).
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("load live translations for %s: %w", group, err)
	}

	out := make(map[string]map[string]string, len(keys))
	for _, k := range keys {
		locales := make(map[string]string, len(k.Values))
		for _, v := range k.Values {
			locales[v.Locale] = v.Value
		}
		out[k.Key] = locales
	}
	return out, nil
}

// UpsertEntries writes the bundle's entries into the live store in a single
// transaction: existing (key, locale) pairs are overwritten, new ones
// inserted. A failure partway leaves the live store exactly as it was.
// Returns the number of value rows written.
func (s *Store) UpsertEntries(environment string, group interfaces.Tag, entries map[string]map[string]string) (int, error) {
	if environment == "" {
		environment = "default"
	}

	written := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, key := range sortedKeys(entries) {
			keyRow, err := ensureKey(tx, environment, group, key)
			if err != nil {
				return err
			}
			for _, locale := range sortedKeys(entries[key]) {
				if err := upsertValue(tx, keyRow.ID, locale, entries[key][locale]); err != nil {
					return err
				}
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Snapshot captures the current live value of every (key, locale) pair the
// given entries would touch, keyed by the migration record that is about to
// apply them. Pairs that do not exist yet are recorded with Existed=false so
// a rollback can delete them.
func (s *Store) Snapshot(recordID, environment string, group interfaces.Tag, entries map[string]map[string]string) error {
	if environment == "" {
		environment = "default"
	}

	current, err := s.Values(environment, group)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// A re-run after a failed apply replaces any partial snapshot.
		if err := tx.Where("migration_record_id = ?", recordID).Delete(&SnapshotRow{}).Error; err != nil {
			return fmt.Errorf("clear previous snapshot: %w", err)
		}

		for _, key := range sortedKeys(entries) {
			for _, locale := range sortedKeys(entries[key]) {
				row := SnapshotRow{
					MigrationRecordID: recordID,
					Environment:       environment,
					Group:             group,
					Key:               key,
					Locale:            locale,
				}
				if live, ok := current[key]; ok {
					if value, ok := live[locale]; ok {
						row.Existed = true
						row.Value = value
					}
				}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("write snapshot row: %w", err)
				}
			}
		}
		return nil
	})
}

// SnapshotExists reports whether a snapshot is available for the record.
func (s *Store) SnapshotExists(recordID string) (bool, error) {
	var count int64
	err := s.db.Model(&SnapshotRow{}).
		Where("migration_record_id = ?", recordID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check snapshot: %w", err)
	}
	return count > 0, nil
}

// Restore puts every snapshotted (key, locale) pair back to its pre-apply
// state: overwritten values are restored verbatim and pairs the apply
// inserted are deleted. The consumed snapshot is removed in the same
// transaction. Returns the number of rows restored or removed.
func (s *Store) Restore(recordID string) (int, error) {
	var rows []SnapshotRow
	if err := s.db.Where("migration_record_id = ?", recordID).
		Order("id ASC").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	restored := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			keyRow, err := findKey(tx, row.Environment, row.Group, row.Key)
			if err != nil {
				return err
			}

			if row.Existed {
				if keyRow == nil {
					keyRow, err = ensureKey(tx, row.Environment, row.Group, row.Key)
					if err != nil {
						return err
					}
				}
				if err := upsertValue(tx, keyRow.ID, row.Locale, row.Value); err != nil {
					return err
				}
				restored++
				continue
			}

			// The apply inserted this pair; remove it again.
			if keyRow == nil {
				continue
			}
			if err := tx.Where("key_id = ? AND locale = ?", keyRow.ID, row.Locale).
				Delete(&TranslationValue{}).Error; err != nil {
				return fmt.Errorf("delete restored value: %w", err)
			}
			restored++

			// Drop the key row when no values remain for it.
			var remaining int64
			if err := tx.Model(&TranslationValue{}).
				Where("key_id = ?", keyRow.ID).Count(&remaining).Error; err != nil {
				return fmt.Errorf("count remaining values: %w", err)
			}
			if remaining == 0 {
				if err := tx.Delete(&TranslationKey{}, keyRow.ID).Error; err != nil {
					return fmt.Errorf("delete empty key: %w", err)
				}
			}
		}

		if err := tx.Where("migration_record_id = ?", recordID).Delete(&SnapshotRow{}).Error; err != nil {
			return fmt.Errorf("consume snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return restored, nil
}

// DeleteSnapshot removes a snapshot without restoring it, for records that
// are archived without ever being rolled back.
func (s *Store) DeleteSnapshot(recordID string) error {
	err := s.db.Where("migration_record_id = ?", recordID).Delete(&SnapshotRow{}).Error
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func ensureKey(tx *gorm.DB, environment string, group interfaces.Tag, key string) (*TranslationKey, error) {
	row := TranslationKey{Environment: environment, Group: group, Key: key}
	err := tx.Where("environment = ? AND key_group = ? AND translation_key = ?",
		environment, group, key).FirstOrCreate(&row).Error
	if err != nil {
		return nil, fmt.Errorf("ensure translation key %s: %w", key, err)
	}
	return &row, nil
}

func findKey(tx *gorm.DB, environment string, group interfaces.Tag, key string) (*TranslationKey, error) {
	var row TranslationKey
	err := tx.Where("environment = ? AND key_group = ? AND translation_key = ?",
		environment, group, key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find translation key %s: %w", key, err)
	}
	return &row, nil
}

func upsertValue(tx *gorm.DB, keyID uint, locale, value string) error {
	var existing TranslationValue
	err := tx.Where("key_id = ? AND locale = ?", keyID, locale).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		create := TranslationValue{KeyID: keyID, Locale: locale, Value: value}
		if err := tx.Create(&create).Error; err != nil {
			return fmt.Errorf("insert translation value: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load translation value: %w", err)
	}
	if existing.Value == value {
		return nil
	}
	if err := tx.Model(&existing).Update("value", value).Error; err != nil {
		return fmt.Errorf("update translation value: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
