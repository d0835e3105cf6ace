package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/i18nhub/translation-migrator/pkg/events"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
)

// InterfaceReport is the per-interface outcome of one discovery run.
type InterfaceReport struct {
	Interface interfaces.Tag `json:"interface"`
	Created   int            `json:"created"`
	Skipped   int            `json:"skipped"`
	Error     string         `json:"error,omitempty"`
}

// DiscoveryReport aggregates a discovery run.
type DiscoveryReport struct {
	Created    []ledger.MigrationRecord `json:"created"`
	Skipped    int                      `json:"skipped"`
	Interfaces []InterfaceReport        `json:"interfaces"`
}

// Failed reports whether any interface failed during the run.
func (r *DiscoveryReport) Failed() bool {
	for _, ir := range r.Interfaces {
		if ir.Error != "" {
			return true
		}
	}
	return false
}

// Discover lists bundles in remote storage for the requested interfaces and
// creates a pending ledger record for every bundle not yet known. Idempotent:
// re-running with no new remote objects creates nothing. A storage failure
// for one interface never aborts discovery for the others.
func (e *Engine) Discover(ctx context.Context, environment string, tags []interfaces.Tag, actor string) (*DiscoveryReport, error) {
	if environment == "" {
		environment = "default"
	}
	if len(tags) == 0 {
		tags = interfaces.All
	}

	report := &DiscoveryReport{}
	for _, tag := range tags {
		ir := InterfaceReport{Interface: tag}

		manifests, err := e.bundles.ListManifests(ctx, tag)
		if err != nil {
			ir.Error = err.Error()
			report.Interfaces = append(report.Interfaces, ir)
			e.logger.Error("discovery failed for interface", "interface", tag, "error", err)
			e.appendAudit(environment, "migration.discovered", actor, "", tag.String(), "failure", err.Error())
			continue
		}

		for _, m := range manifests {
			record := &ledger.MigrationRecord{
				ID:              uuid.New().String(),
				Environment:     environment,
				InterfaceOrigin: tag,
				Filename:        m.Filename,
				Version:         m.Version,
				Checksum:        m.Checksum,
				Status:          ledger.StatusPending,
			}
			created, err := e.ledger.CreateIfAbsent(record)
			if err != nil {
				ir.Error = err.Error()
				break
			}
			if !created {
				ir.Skipped++
				continue
			}
			ir.Created++
			report.Created = append(report.Created, *record)
			discoveredTotal.WithLabelValues(tag.String()).Inc()

			msg := fmt.Sprintf("Discovered bundle %s %s for %s", m.Filename, m.Version, tag)
			e.notify(ctx, events.MigrationSynced, record, msg)
			e.appendAudit(environment, "migration.discovered", actor, record.ID, tag.String(), "success", msg)
		}

		report.Skipped += ir.Skipped
		report.Interfaces = append(report.Interfaces, ir)
	}
	return report, nil
}
