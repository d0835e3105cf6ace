// Package events publishes migration lifecycle notifications to observers
// (UI toasts, chat hooks, monitoring). Publishing is best-effort: a failed
// notification never fails the operation that produced it.
package events

import (
	"context"
	"time"
)

// Type enumerates the notification types emitted by the engine.
type Type string

const (
	MigrationSynced     Type = "migration-synced"
	MigrationApplied    Type = "migration-applied"
	MigrationRolledBack Type = "migration-rolled-back"
	MigrationError      Type = "migration-error"
)

// Event is one notification payload.
type Event struct {
	Type        Type      `json:"type"`
	RecordID    string    `json:"recordId,omitempty"`
	Environment string    `json:"environment,omitempty"`
	Interface   string    `json:"interface,omitempty"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Notifier delivers events to an external channel.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NoopNotifier discards all events.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(context.Context, Event) {}
