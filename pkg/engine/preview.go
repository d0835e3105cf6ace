package engine

import (
	"context"
	"sort"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
)

// ChangeKind classifies one key's difference between bundle and live store.
type ChangeKind string

const (
	ChangeNew     ChangeKind = "new"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change is one key-level difference.
type Change struct {
	Kind    ChangeKind        `json:"kind"`
	KeyName string            `json:"key"`
	Locales map[string]string `json:"locales,omitempty"` // Bundle values; empty for deleted keys.
}

// PreviewResult is the structured diff of a bundle against the live store.
type PreviewResult struct {
	RecordID string               `json:"recordId"`
	Summary  ledger.PreviewCounts `json:"summary"`
	Changes  []Change             `json:"changes"`
}

// Preview computes the diff between a record's bundle and the current live
// translations for its interface: keys absent live are new, keys present
// with any differing locale value are updated, and live keys absent from the
// bundle are reported as deleted. Read-only with respect to the live store
// and the record's status; only the summary counts are remembered on the
// record's metadata.
func (e *Engine) Preview(ctx context.Context, recordID string) (*PreviewResult, error) {
	record, err := e.ledger.Get(recordID)
	if err != nil {
		return nil, err
	}

	data, err := e.fetch(ctx, record)
	if err != nil {
		return nil, err
	}
	content, err := bundle.ParseContent(data)
	if err != nil {
		return nil, integrityErr("parse bundle content", err)
	}

	live, err := e.live.Values(record.Environment, record.InterfaceOrigin)
	if err != nil {
		return nil, transientErr("load live translations", err)
	}

	result := diff(content, live)
	result.RecordID = record.ID

	if err := e.ledger.UpdateMeta(record.ID, func(m *ledger.Metadata) {
		counts := result.Summary
		m.LastPreview = &counts
	}); err != nil {
		// The diff itself is still valid; surface the summary regardless.
		e.logger.Warn("failed to record preview summary", "recordID", record.ID, "error", err)
	}
	return result, nil
}

// diff classifies every bundle key against the live values.
func diff(content *bundle.Content, live map[string]map[string]string) *PreviewResult {
	result := &PreviewResult{}

	for _, key := range content.Keys() {
		bundleLocales := content.Entries[key]
		liveLocales, exists := live[key]
		if !exists {
			result.Summary.NewKeys++
			result.Changes = append(result.Changes, Change{
				Kind: ChangeNew, KeyName: key, Locales: bundleLocales,
			})
			continue
		}
		if localesDiffer(bundleLocales, liveLocales) {
			result.Summary.UpdatedKeys++
			result.Changes = append(result.Changes, Change{
				Kind: ChangeUpdated, KeyName: key, Locales: bundleLocales,
			})
		}
	}

	// Keys live for this interface but absent from the bundle. Reported
	// only: applies never delete (see DESIGN.md).
	var deleted []string
	for key := range live {
		if _, ok := content.Entries[key]; !ok {
			deleted = append(deleted, key)
		}
	}
	sort.Strings(deleted)
	for _, key := range deleted {
		result.Summary.DeletedKeys++
		result.Changes = append(result.Changes, Change{Kind: ChangeDeleted, KeyName: key})
	}

	result.Summary.TotalKeys = len(content.Entries)
	return result
}

// localesDiffer reports whether the bundle would change any locale value of
// an existing key.
func localesDiffer(bundleLocales, liveLocales map[string]string) bool {
	for locale, value := range bundleLocales {
		if liveValue, ok := liveLocales[locale]; !ok || liveValue != value {
			return true
		}
	}
	return false
}
