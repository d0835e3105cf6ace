package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusProcessing},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
		{StatusCompleted, StatusRolledBack},
		{StatusFailed, StatusPending},
	}
	for _, tr := range allowed {
		assert.True(t, ValidTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}
}

func TestInvalidTransitions(t *testing.T) {
	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusCompleted, StatusProcessing},
		{StatusCompleted, StatusPending},
		{StatusFailed, StatusCompleted},
		{StatusRolledBack, StatusPending},
		{StatusRolledBack, StatusProcessing},
	}
	for _, tr := range denied {
		assert.False(t, ValidTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}
}

func TestAllowedNext(t *testing.T) {
	assert.Equal(t, []Status{StatusProcessing}, AllowedNext(StatusPending))
	assert.Empty(t, AllowedNext(StatusRolledBack))
}
