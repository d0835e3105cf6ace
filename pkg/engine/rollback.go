package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/i18nhub/translation-migrator/pkg/events"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
)

// RollbackResult reports a completed rollback.
type RollbackResult struct {
	RecordID     string `json:"recordId"`
	RowsRestored int    `json:"rowsRestored"`
}

// Rollback restores the live translations a completed record changed to
// their exact pre-apply state and marks the record rolled back. Values the
// apply overwrote come back verbatim, pairs the apply inserted are removed.
// Only completed records with an intact snapshot can roll back; rolled_back
// is terminal.
func (e *Engine) Rollback(ctx context.Context, recordID, actor string) (*RollbackResult, error) {
	record, err := e.ledger.Get(recordID)
	if err != nil {
		return nil, err
	}

	if record.Status != ledger.StatusCompleted {
		rollbacksTotal.WithLabelValues(record.InterfaceOrigin.String(), "conflict").Inc()
		return nil, conflictErr(fmt.Sprintf("record is %s, only completed records can be rolled back", record.Status), nil)
	}

	exists, err := e.live.SnapshotExists(record.ID)
	if err != nil {
		return nil, transientErr("check snapshot", err)
	}
	if !exists {
		rollbacksTotal.WithLabelValues(record.InterfaceOrigin.String(), "conflict").Inc()
		return nil, conflictErr("no snapshot available for this record", nil)
	}

	restored, err := e.live.Restore(record.ID)
	if err != nil {
		rollbacksTotal.WithLabelValues(record.InterfaceOrigin.String(), "failure").Inc()
		e.notify(ctx, events.MigrationError, record, err.Error())
		return nil, transientErr("restore snapshot", err)
	}

	if err := e.ledger.MarkRolledBack(record.ID); err != nil {
		var te *ledger.TransitionError
		if errors.As(err, &te) {
			// A concurrent rollback won the race and consumed the snapshot.
			rollbacksTotal.WithLabelValues(record.InterfaceOrigin.String(), "conflict").Inc()
			return nil, conflictErr(fmt.Sprintf("record is %s, rollback already performed", te.From), nil)
		}
		return nil, err
	}

	rollbacksTotal.WithLabelValues(record.InterfaceOrigin.String(), "success").Inc()
	msg := fmt.Sprintf("Rolled back bundle %s %s: %d rows restored",
		record.Filename, record.Version, restored)
	e.logger.Info("migration rolled back",
		"recordID", record.ID, "interface", record.InterfaceOrigin, "rows", restored)
	e.notify(ctx, events.MigrationRolledBack, record, msg)
	e.appendAudit(record.Environment, "migration.rolled_back", actor, record.ID,
		record.InterfaceOrigin.String(), "success", msg)

	return &RollbackResult{RecordID: record.ID, RowsRestored: restored}, nil
}

// Retry resets a failed record to pending and re-runs the apply. Only
// failures persisted as transient qualify: an integrity failure means the
// bundle content itself is wrong and re-fetching the same version cannot
// succeed.
func (e *Engine) Retry(ctx context.Context, recordID, actor string) (*ApplyResult, error) {
	record, err := e.ledger.Get(recordID)
	if err != nil {
		return nil, err
	}

	if record.Status != ledger.StatusFailed {
		return nil, conflictErr(fmt.Sprintf("record is %s, only failed records can be retried", record.Status), nil)
	}
	if !IsRetryable(record.ErrorMessage) {
		return nil, conflictErr("record failed an integrity check, publish a corrected bundle version instead", nil)
	}

	if err := e.ledger.ResetToPending(record.ID); err != nil {
		var te *ledger.TransitionError
		if errors.As(err, &te) {
			return nil, conflictErr(fmt.Sprintf("record is %s, only failed records can be retried", te.From), nil)
		}
		return nil, err
	}
	e.appendAudit(record.Environment, "migration.retried", actor, record.ID,
		record.InterfaceOrigin.String(), "success", "Record reset to pending for retry")

	return e.Apply(ctx, recordID, actor)
}
