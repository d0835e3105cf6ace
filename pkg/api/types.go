package api

import (
	"time"

	"github.com/i18nhub/translation-migrator/pkg/engine"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
)

type discoverRequest struct {
	Interfaces []string `json:"interfaces,omitempty"` // Empty means all registered interfaces.
	AutoApply  bool     `json:"autoApply,omitempty"`
}

type applyRequest struct {
	// Safeguard toggles default to true when absent.
	CreateBackup     *bool  `json:"createBackup,omitempty"`
	ValidateChecksum *bool  `json:"validateChecksum,omitempty"`
	Async            bool   `json:"async,omitempty"`
	IdempotencyKey   string `json:"idempotencyKey,omitempty"`
}

func (r applyRequest) options() engine.ApplyOptions {
	opts := engine.DefaultApplyOptions()
	if r.CreateBackup != nil {
		opts.CreateBackup = *r.CreateBackup
	}
	if r.ValidateChecksum != nil {
		opts.ValidateChecksum = *r.ValidateChecksum
	}
	return opts
}

type applyBatchRequest struct {
	RecordIDs      []string `json:"recordIds"`
	Async          bool     `json:"async,omitempty"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
}

type retryFailedRequest struct {
	Async          bool   `json:"async,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

type migrationResponse struct {
	ID            string                `json:"id"`
	Environment   string                `json:"environment"`
	Interface     string                `json:"interface"`
	Filename      string                `json:"filename"`
	Version       string                `json:"version"`
	Checksum      string                `json:"checksum"`
	Status        string                `json:"status"`
	BatchNumber   string                `json:"batchNumber,omitempty"`
	ErrorMessage  string                `json:"errorMessage,omitempty"`
	ManifestValid *bool                 `json:"manifestValid,omitempty"`
	BackupCreated bool                  `json:"backupCreated,omitempty"`
	LastPreview   *ledger.PreviewCounts `json:"lastPreview,omitempty"`
	ExecutedAt    *time.Time            `json:"executedAt,omitempty"`
	RolledBackAt  *time.Time            `json:"rolledBackAt,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

func recordToResponse(rec ledger.MigrationRecord) migrationResponse {
	return migrationResponse{
		ID:            rec.ID,
		Environment:   rec.Environment,
		Interface:     rec.InterfaceOrigin.String(),
		Filename:      rec.Filename,
		Version:       rec.Version,
		Checksum:      rec.Checksum,
		Status:        string(rec.Status),
		BatchNumber:   rec.BatchNumber,
		ErrorMessage:  rec.ErrorMessage,
		ManifestValid: rec.Meta.ManifestValid,
		BackupCreated: rec.Meta.BackupCreated,
		LastPreview:   rec.Meta.LastPreview,
		ExecutedAt:    rec.ExecutedAt,
		RolledBackAt:  rec.RolledBackAt,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

type discoveryResponse struct {
	Created    []migrationResponse      `json:"created"`
	Skipped    int                      `json:"skipped"`
	Interfaces []engine.InterfaceReport `json:"interfaces"`
}

func discoveryToResponse(report *engine.DiscoveryReport) discoveryResponse {
	out := discoveryResponse{
		Created:    make([]migrationResponse, 0, len(report.Created)),
		Skipped:    report.Skipped,
		Interfaces: report.Interfaces,
	}
	for _, rec := range report.Created {
		out.Created = append(out.Created, recordToResponse(rec))
	}
	return out
}

type migrationList struct {
	Migrations    []migrationResponse `json:"migrations"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
	TotalSize     int                 `json:"totalSize"`
}

type enqueuedJobResponse struct {
	JobID     string `json:"jobId"`
	State     string `json:"state"`
	Operation string `json:"operation"`
}
