package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/i18nhub/translation-migrator/pkg/engine"
)

// MigrationRunner is the interface the worker uses to execute apply work.
// It is satisfied by *engine.Engine but keeps the queue decoupled from the
// engine's construction.
type MigrationRunner interface {
	Apply(ctx context.Context, recordID, actor string) (*engine.ApplyResult, error)
	ApplyMany(ctx context.Context, recordIDs []string, actor string) (*engine.BatchResult, error)
	RetryFailed(ctx context.Context, environment, actor string) (*engine.BatchResult, error)
}

// WorkerPool processes queued apply jobs using a pool of goroutines.
type WorkerPool struct {
	store  *JobStore
	runner MigrationRunner
	cfg    *JobConfig
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(store *JobStore, runner MigrationRunner, cfg *JobConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		store:  store,
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the worker pool. It spawns cfg.Concurrency goroutines,
// each polling for jobs. It blocks until the context is cancelled,
// then waits for all workers to finish.
func (wp *WorkerPool) Run(ctx context.Context) {
	if wp.store == nil || !wp.cfg.Enabled {
		wp.logger.Info("job worker pool disabled")
		return
	}

	wp.logger.Info("job worker pool starting",
		"concurrency", wp.cfg.Concurrency,
		"maxRetries", wp.cfg.MaxRetries,
		"pollInterval", wp.cfg.PollInterval.String())

	// Start stuck job cleanup goroutine.
	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		wp.cleanupLoop(ctx)
	}()

	// Start worker goroutines.
	for i := 0; i < wp.cfg.Concurrency; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			wp.workerLoop(ctx, workerID)
		}(i)
	}

	<-ctx.Done()
	wp.logger.Info("job worker pool shutting down, waiting for workers to finish")
	wp.wg.Wait()
	wp.logger.Info("job worker pool stopped")
}

// workerLoop is the main loop for a single worker goroutine.
func (wp *WorkerPool) workerLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(wp.cfg.PollInterval)
	defer ticker.Stop()

	wp.logger.Info("worker started", "workerID", workerID)

	for {
		select {
		case <-ctx.Done():
			wp.logger.Info("worker stopped", "workerID", workerID)
			return
		case <-ticker.C:
			wp.processOne(ctx, workerID)
		}
	}
}

// processOne tries to claim and process a single job.
func (wp *WorkerPool) processOne(ctx context.Context, workerID int) {
	job, err := wp.store.Claim(wp.cfg.MaxRetries)
	if err != nil {
		wp.logger.Error("failed to claim job", "workerID", workerID, "error", err)
		return
	}
	if job == nil {
		return // No jobs available.
	}

	wp.logger.Info("processing job",
		"workerID", workerID,
		"jobID", job.ID,
		"operation", job.Operation,
		"recordID", job.RecordID,
		"attempt", job.AttemptCount)

	start := time.Now()
	rows, succeeded, failed, err := wp.execute(ctx, job)
	if err != nil {
		wp.logger.Error("job failed",
			"workerID", workerID,
			"jobID", job.ID,
			"error", err)
		// Conflict and integrity errors cannot succeed on a re-run, so the
		// job fails terminally regardless of remaining attempts.
		retries := wp.cfg.MaxRetries
		switch engine.KindOf(err) {
		case engine.KindConflict, engine.KindIntegrity:
			retries = 0
		}
		if failErr := wp.store.Fail(job.ID, err.Error(), retries); failErr != nil {
			wp.logger.Error("failed to mark job as failed", "jobID", job.ID, "error", failErr)
		}
		return
	}

	wp.logger.Info("job completed",
		"workerID", workerID,
		"jobID", job.ID,
		"rowsWritten", rows,
		"recordsSucceeded", succeeded,
		"recordsFailed", failed,
		"duration", time.Since(start).String())

	if err := wp.store.Complete(job.ID, rows, succeeded, failed, time.Since(start).Milliseconds()); err != nil {
		wp.logger.Error("failed to mark job as complete", "jobID", job.ID, "error", err)
	}
}

// execute dispatches a claimed job to the matching engine operation.
func (wp *WorkerPool) execute(ctx context.Context, job *ApplyJob) (rows, succeeded, failed int, err error) {
	switch job.Operation {
	case OpApply:
		result, err := wp.runner.Apply(ctx, job.RecordID, job.RequestedBy)
		if err != nil {
			return 0, 0, 0, err
		}
		return result.RowsWritten, 1, 0, nil

	case OpApplyBatch:
		result, err := wp.runner.ApplyMany(ctx, job.RecordIDs, job.RequestedBy)
		if err != nil {
			return 0, 0, 0, err
		}
		return sumRows(result), result.Succeeded, result.Failed, nil

	case OpRetryFailed:
		result, err := wp.runner.RetryFailed(ctx, job.Environment, job.RequestedBy)
		if err != nil {
			return 0, 0, 0, err
		}
		return sumRows(result), result.Succeeded, result.Failed, nil

	default:
		return 0, 0, 0, engine.NewError(engine.KindConflict, "unknown job operation: "+string(job.Operation))
	}
}

func sumRows(result *engine.BatchResult) int {
	rows := 0
	for _, outcome := range result.Outcomes {
		rows += outcome.RowsWritten
	}
	return rows
}

// cleanupLoop periodically cleans up stuck jobs and old completed jobs.
func (wp *WorkerPool) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Recover stuck jobs.
			if wp.cfg.ClaimTimeout > 0 {
				recovered, err := wp.store.CleanupStuckJobs(wp.cfg.ClaimTimeout)
				if err != nil {
					wp.logger.Error("failed to cleanup stuck jobs", "error", err)
				} else if recovered > 0 {
					wp.logger.Info("recovered stuck jobs", "count", recovered)
				}
			}

			// Delete old terminal jobs.
			if wp.cfg.RetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -wp.cfg.RetentionDays)
				deleted, err := wp.store.DeleteOlderThan(cutoff)
				if err != nil {
					wp.logger.Error("failed to delete old jobs", "error", err)
				} else if deleted > 0 {
					wp.logger.Info("deleted old jobs", "count", deleted)
				}
			}
		}
	}
}
