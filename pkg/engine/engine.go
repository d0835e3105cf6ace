// Package engine implements the translation migration engine: discovery of
// versioned bundles in remote storage, read-only diff previews, guarded
// applies into the live translation store, snapshots and rollbacks, and
// batch coordination across interfaces and records.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/i18nhub/translation-migrator/pkg/audit"
	"github.com/i18nhub/translation-migrator/pkg/bundlestore"
	"github.com/i18nhub/translation-migrator/pkg/events"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
	"github.com/i18nhub/translation-migrator/pkg/livestore"
)

// Config controls engine timeouts and maintenance behavior.
type Config struct {
	FetchTimeout       time.Duration // Bound on a single remote bundle fetch. Default 30s.
	StaleProcessingAge time.Duration // Age after which a processing record is failed. Default 15m.
	AuditRetentionDays int           // How long audit events are kept. Default 90.
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		FetchTimeout:       30 * time.Second,
		StaleProcessingAge: 15 * time.Minute,
		AuditRetentionDays: 90,
	}
}

// ConfigFromEnv loads config from environment variables.
// MIGRATOR_FETCH_TIMEOUT_SECONDS, MIGRATOR_STALE_PROCESSING_MINUTES,
// MIGRATOR_AUDIT_RETENTION_DAYS
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("MIGRATOR_FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("MIGRATOR_STALE_PROCESSING_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StaleProcessingAge = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("MIGRATOR_AUDIT_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AuditRetentionDays = n
		}
	}
	return cfg
}

// Engine wires the ledger, the live store, remote bundle storage, the audit
// trail and the notification channel together.
type Engine struct {
	ledger   *ledger.Store
	live     *livestore.Store
	bundles  bundlestore.Store
	audits   *audit.Store
	notifier events.Notifier
	cfg      *Config
	logger   *slog.Logger
}

// New creates an Engine. The audit store and notifier may be nil.
func New(ledgerStore *ledger.Store, liveStore *livestore.Store, bundles bundlestore.Store, audits *audit.Store, notifier events.Notifier, cfg *Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ledger:   ledgerStore,
		live:     liveStore,
		bundles:  bundles,
		audits:   audits,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ledger exposes the underlying ledger store for read-only API listing.
func (e *Engine) Ledger() *ledger.Store { return e.ledger }

// Download returns the raw bundle bytes for a record, for audit and export.
// Read-only: no status or live-store change.
func (e *Engine) Download(ctx context.Context, recordID string) ([]byte, *ledger.MigrationRecord, error) {
	record, err := e.ledger.Get(recordID)
	if err != nil {
		return nil, nil, err
	}
	data, err := e.fetch(ctx, record)
	if err != nil {
		return nil, nil, err
	}
	return data, record, nil
}

// fetch reads the record's bundle bytes with the configured timeout.
func (e *Engine) fetch(ctx context.Context, record *ledger.MigrationRecord) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	data, err := e.bundles.Fetch(fetchCtx, record.InterfaceOrigin, record.Filename)
	if err != nil {
		return nil, transientErr(fmt.Sprintf("fetch bundle %s/%s", record.InterfaceOrigin, record.Filename), err)
	}
	return data, nil
}

// RunMaintenance periodically fails stale processing records and purges old
// audit events. Blocks until the context is canceled.
func (e *Engine) RunMaintenance(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.ledger.FailStaleProcessing(e.cfg.StaleProcessingAge,
				"transient: apply exceeded the processing deadline")
			if err != nil {
				e.logger.Error("stale processing recovery failed", "error", err)
			} else if n > 0 {
				e.logger.Warn("failed stale processing records", "count", n)
			}

			if e.audits != nil && e.cfg.AuditRetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -e.cfg.AuditRetentionDays)
				if _, err := e.audits.PurgeOlderThan(cutoff); err != nil {
					e.logger.Error("audit purge failed", "error", err)
				}
			}
		}
	}
}

// appendAudit writes an audit event, logging instead of failing on error.
func (e *Engine) appendAudit(environment, eventType, actor, recordID, ifaceTag, outcome, message string) {
	if e.audits == nil {
		return
	}
	err := e.audits.Append(&audit.EventRecord{
		ID:          uuid.New().String(),
		Environment: environment,
		EventType:   eventType,
		Actor:       actor,
		RecordID:    recordID,
		Interface:   ifaceTag,
		Outcome:     outcome,
		Message:     message,
	})
	if err != nil {
		e.logger.Error("audit append failed", "eventType", eventType, "error", err)
	}
}

func (e *Engine) notify(ctx context.Context, eventType events.Type, record *ledger.MigrationRecord, message string) {
	event := events.Event{
		Type:       eventType,
		Message:    message,
		OccurredAt: time.Now(),
	}
	if record != nil {
		event.RecordID = record.ID
		event.Environment = record.Environment
		event.Interface = record.InterfaceOrigin.String()
	}
	e.notifier.Notify(ctx, event)
}
