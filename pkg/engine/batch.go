package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/i18nhub/translation-migrator/pkg/interfaces"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
)

// BatchOutcome is the per-record result inside a batch run.
type BatchOutcome struct {
	RecordID    string `json:"recordId"`
	Succeeded   bool   `json:"succeeded"`
	RowsWritten int    `json:"rowsWritten,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchResult aggregates a batch apply run. Each record applies atomically
// on its own; one failure never rolls back or blocks its siblings.
type BatchResult struct {
	BatchNumber string         `json:"batchNumber"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	Outcomes    []BatchOutcome `json:"outcomes"`
}

// newBatchNumber stamps a human-sortable batch grouping identifier.
func newBatchNumber() string {
	return "batch-" + time.Now().UTC().Format("20060102T150405.000")
}

// ApplyMany applies a set of records as one batch. All records are stamped
// with a shared batch number up front, then applied in order; the report
// carries every per-record outcome so partial success is visible.
func (e *Engine) ApplyMany(ctx context.Context, recordIDs []string, actor string) (*BatchResult, error) {
	if len(recordIDs) == 0 {
		return nil, conflictErr("no record ids given", nil)
	}

	result := &BatchResult{BatchNumber: newBatchNumber()}
	for _, id := range recordIDs {
		if err := e.ledger.SetBatchNumber(id, result.BatchNumber); err != nil {
			result.Failed++
			result.Outcomes = append(result.Outcomes, BatchOutcome{RecordID: id, Error: err.Error()})
			continue
		}

		applied, err := e.Apply(ctx, id, actor)
		if err != nil {
			result.Failed++
			result.Outcomes = append(result.Outcomes, BatchOutcome{RecordID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Outcomes = append(result.Outcomes, BatchOutcome{
			RecordID: id, Succeeded: true, RowsWritten: applied.RowsWritten,
		})
	}

	e.logger.Info("batch apply finished", "batch", result.BatchNumber,
		"succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// DiscoverMany runs discovery for the given interfaces and, when autoApply
// is set, immediately applies every record the run created as one batch.
func (e *Engine) DiscoverMany(ctx context.Context, environment string, tags []interfaces.Tag, autoApply bool, actor string) (*DiscoveryReport, *BatchResult, error) {
	report, err := e.Discover(ctx, environment, tags, actor)
	if err != nil {
		return nil, nil, err
	}
	if !autoApply || len(report.Created) == 0 {
		return report, nil, nil
	}

	ids := make([]string, 0, len(report.Created))
	for _, record := range report.Created {
		ids = append(ids, record.ID)
	}
	batch, err := e.ApplyMany(ctx, ids, actor)
	if err != nil {
		return report, nil, err
	}
	return report, batch, nil
}

// RetryFailed finds every failed record in the environment whose persisted
// failure is retryable and re-runs it. Integrity failures are left alone.
func (e *Engine) RetryFailed(ctx context.Context, environment, actor string) (*BatchResult, error) {
	if environment == "" {
		environment = "default"
	}

	var candidates []ledger.MigrationRecord
	pageToken := ""
	for {
		page, next, _, err := e.ledger.List(ledger.ListFilter{
			Environment: environment,
			Status:      ledger.StatusFailed,
		}, 100, pageToken)
		if err != nil {
			return nil, transientErr("list failed records", err)
		}
		candidates = append(candidates, page...)
		if next == "" {
			break
		}
		pageToken = next
	}

	result := &BatchResult{BatchNumber: newBatchNumber()}
	for _, record := range candidates {
		if !IsRetryable(record.ErrorMessage) {
			continue
		}
		if err := e.ledger.SetBatchNumber(record.ID, result.BatchNumber); err != nil {
			result.Failed++
			result.Outcomes = append(result.Outcomes, BatchOutcome{RecordID: record.ID, Error: err.Error()})
			continue
		}
		applied, err := e.Retry(ctx, record.ID, actor)
		if err != nil {
			result.Failed++
			result.Outcomes = append(result.Outcomes, BatchOutcome{RecordID: record.ID, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Outcomes = append(result.Outcomes, BatchOutcome{
			RecordID: record.ID, Succeeded: true, RowsWritten: applied.RowsWritten,
		})
	}

	e.logger.Info("retry sweep finished", "batch", result.BatchNumber,
		"candidates", len(candidates), "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// String renders a one-line batch summary for CLI output.
func (r *BatchResult) String() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed", r.BatchNumber, r.Succeeded, r.Failed)
}
