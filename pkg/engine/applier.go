package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/events"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
)

// ApplyResult reports a completed apply.
type ApplyResult struct {
	RecordID    string `json:"recordId"`
	RowsWritten int    `json:"rowsWritten"`
	KeysApplied int    `json:"keysApplied"`
}

// ApplyOptions controls the optional apply safeguards. Both default on.
type ApplyOptions struct {
	CreateBackup     bool // Snapshot touched rows so the apply can roll back.
	ValidateChecksum bool // Verify bundle bytes against the manifest checksum.
}

// DefaultApplyOptions enables the checksum gate and the pre-apply snapshot.
func DefaultApplyOptions() ApplyOptions {
	return ApplyOptions{CreateBackup: true, ValidateChecksum: true}
}

// Apply executes one migration record end to end: claim it with the
// pending → processing guard, fetch the bundle, verify its checksum against
// the manifest value recorded at discovery, snapshot the live values the
// bundle will touch, write the entries, and mark the record completed. Any
// failure after the claim marks the record failed with a classified
// diagnostic; the snapshot is kept so a later retry starts clean.
//
// Concurrent applies of the same record are safe: the status guard admits
// exactly one caller, the rest get a conflict error.
func (e *Engine) Apply(ctx context.Context, recordID, actor string) (*ApplyResult, error) {
	return e.ApplyWithOptions(ctx, recordID, actor, DefaultApplyOptions())
}

// ApplyWithOptions is Apply with the checksum gate or the snapshot
// selectively disabled. A record applied without a snapshot cannot be
// rolled back.
func (e *Engine) ApplyWithOptions(ctx context.Context, recordID, actor string, opts ApplyOptions) (*ApplyResult, error) {
	record, err := e.ledger.Get(recordID)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.BeginProcessing(record.ID); err != nil {
		var te *ledger.TransitionError
		if errors.As(err, &te) {
			appliesTotal.WithLabelValues(record.InterfaceOrigin.String(), "conflict").Inc()
			return nil, conflictErr(fmt.Sprintf("record is %s, only pending records can be applied", te.From), nil)
		}
		return nil, err
	}

	start := time.Now()
	result, err := e.apply(ctx, record, opts)
	if err != nil {
		e.failApply(ctx, record, actor, err)
		return nil, err
	}
	applyDuration.Observe(time.Since(start).Seconds())
	appliesTotal.WithLabelValues(record.InterfaceOrigin.String(), "success").Inc()
	rowsWritten.Add(float64(result.RowsWritten))

	msg := fmt.Sprintf("Applied bundle %s %s: %d rows across %d keys",
		record.Filename, record.Version, result.RowsWritten, result.KeysApplied)
	e.logger.Info("migration applied",
		"recordID", record.ID, "interface", record.InterfaceOrigin,
		"version", record.Version, "rows", result.RowsWritten)
	e.notify(ctx, events.MigrationApplied, record, msg)
	e.appendAudit(record.Environment, "migration.applied", actor, record.ID,
		record.InterfaceOrigin.String(), "success", msg)
	return result, nil
}

// apply runs the fallible middle of an apply, after the record has been
// claimed. Errors are returned classified and persisted by the caller.
func (e *Engine) apply(ctx context.Context, record *ledger.MigrationRecord, opts ApplyOptions) (*ApplyResult, error) {
	data, err := e.fetch(ctx, record)
	if err != nil {
		return nil, err
	}

	meta := record.Meta
	if opts.ValidateChecksum {
		if !bundle.ValidateChecksum(data, record.Checksum) {
			return nil, integrityErr(fmt.Sprintf("checksum mismatch for %s %s: bundle content does not match manifest",
				record.Filename, record.Version), nil)
		}
		valid := true
		meta.ManifestValid = &valid
	}

	content, err := bundle.ParseContent(data)
	if err != nil {
		return nil, integrityErr("parse bundle content", err)
	}

	if opts.CreateBackup {
		if err := e.live.Snapshot(record.ID, record.Environment, record.InterfaceOrigin, content.Entries); err != nil {
			return nil, transientErr("snapshot live translations", err)
		}
		meta.BackupCreated = true
	}

	written, err := e.live.UpsertEntries(record.Environment, record.InterfaceOrigin, content.Entries)
	if err != nil {
		return nil, transientErr("write translation entries", err)
	}

	now := time.Now()
	meta.AppliedAt = &now
	if err := e.ledger.MarkCompleted(record.ID, meta); err != nil {
		return nil, transientErr("mark record completed", err)
	}

	return &ApplyResult{
		RecordID:    record.ID,
		RowsWritten: written,
		KeysApplied: len(content.Entries),
	}, nil
}

// failApply persists a classified apply failure and emits the matching
// metric, event, and audit entry. Conflict errors never reach here.
func (e *Engine) failApply(ctx context.Context, record *ledger.MigrationRecord, actor string, applyErr error) {
	meta := record.Meta
	if KindOf(applyErr) == KindIntegrity {
		invalid := false
		meta.ManifestValid = &invalid
	}
	if err := e.ledger.MarkFailed(record.ID, applyErr.Error(), meta); err != nil {
		// A maintenance sweep may already have failed the record.
		e.logger.Error("failed to mark record failed", "recordID", record.ID, "error", err)
	}

	appliesTotal.WithLabelValues(record.InterfaceOrigin.String(), "failure").Inc()
	e.logger.Error("migration apply failed",
		"recordID", record.ID, "interface", record.InterfaceOrigin,
		"version", record.Version, "error", applyErr)
	e.notify(ctx, events.MigrationError, record, applyErr.Error())
	e.appendAudit(record.Environment, "migration.applied", actor, record.ID,
		record.InterfaceOrigin.String(), "failure", applyErr.Error())
}
