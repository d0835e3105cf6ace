package events

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderCollectsInOrder(t *testing.T) {
	r := &Recorder{}
	r.Notify(context.Background(), Event{Type: MigrationSynced, RecordID: "rec-1"})
	r.Notify(context.Background(), Event{Type: MigrationApplied, RecordID: "rec-1"})
	r.Notify(context.Background(), Event{Type: MigrationRolledBack, RecordID: "rec-1"})

	assert.Equal(t, []Type{MigrationSynced, MigrationApplied, MigrationRolledBack}, r.Types())
	assert.Equal(t, "rec-1", r.Events[0].RecordID)
}

func TestLogNotifierWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewLogNotifier(logger)
	n.Notify(context.Background(), Event{
		Type:        MigrationApplied,
		RecordID:    "rec-7",
		Environment: "staging",
		Interface:   "mobile",
		Message:     "Applied bundle en.json 1.0.0",
	})

	out := buf.String()
	assert.Contains(t, out, "migration-applied")
	assert.Contains(t, out, "rec-7")
	assert.Contains(t, out, "staging")
}

func TestNoopNotifierDiscards(t *testing.T) {
	// Must not panic with a zero event.
	NoopNotifier{}.Notify(context.Background(), Event{})
}

func TestNATSSubjectForType(t *testing.T) {
	n := &NATSNotifier{prefix: "translations.migrations"}
	assert.Equal(t, "translations.migrations.migration-applied", n.subjectFor(MigrationApplied))
}
