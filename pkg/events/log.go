package events

import (
	"context"
	"log/slog"
	"time"
)

// LogNotifier writes events to the structured log. Used in development and
// as the fallback when no NATS URL is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	n.logger.Info("migration event",
		"type", event.Type,
		"recordID", event.RecordID,
		"environment", event.Environment,
		"interface", event.Interface,
		"message", event.Message)
}

// Recorder collects events in memory for tests.
type Recorder struct {
	Events []Event
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, event Event) {
	r.Events = append(r.Events, event)
}

// Types returns the types of all recorded events in order.
func (r *Recorder) Types() []Type {
	types := make([]Type, len(r.Events))
	for i, e := range r.Events {
		types[i] = e.Type
	}
	return types
}
