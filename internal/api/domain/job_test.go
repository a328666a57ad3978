package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"a@x.com", true},
		{"first.last@sub.example.org", true},
		{"not-an-email", false},
		{"", false},
		{"missing-domain@", false},
		{"@missing-local.com", false},
		{"no-dot@localhost", false},
		{"Display Name <a@x.com>", false},
		{"two@@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAddress(tt.addr))
		})
	}
}

func TestPlanRecipients(t *testing.T) {
	t.Run("deduplicates preserving first-seen order", func(t *testing.T) {
		plans, err := PlanRecipients([]string{"a@x.com", "b@x.com", "a@x.com", "c@x.com", "b@x.com"})
		require.NoError(t, err)
		require.Len(t, plans, 3)

		assert.Equal(t, "a@x.com", plans[0].Address)
		assert.Equal(t, "b@x.com", plans[1].Address)
		assert.Equal(t, "c@x.com", plans[2].Address)

		for i, p := range plans {
			assert.Equal(t, i, p.Position)
			assert.Equal(t, OutcomeQueued, p.Outcome)
		}
	})

	t.Run("dedup is case-insensitive", func(t *testing.T) {
		plans, err := PlanRecipients([]string{"A@X.com", "a@x.com"})
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "A@X.com", plans[0].Address)
	})

	t.Run("invalid addresses are skipped not rejected", func(t *testing.T) {
		plans, err := PlanRecipients([]string{"not-an-email", "c@x.com"})
		require.NoError(t, err)
		require.Len(t, plans, 2)

		assert.Equal(t, OutcomeSkippedInvalid, plans[0].Outcome)
		assert.Equal(t, OutcomeQueued, plans[1].Outcome)
	})

	t.Run("blank entries are dropped", func(t *testing.T) {
		plans, err := PlanRecipients([]string{"  ", "a@x.com", ""})
		require.NoError(t, err)
		require.Len(t, plans, 1)
	})

	t.Run("empty list is a validation error", func(t *testing.T) {
		_, err := PlanRecipients(nil)
		require.Error(t, err)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "recipients", verr.Field)
	})

	t.Run("all-blank list is a validation error", func(t *testing.T) {
		_, err := PlanRecipients([]string{"", "   "})
		require.Error(t, err)
	})
}

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(JobStatusPending))
	assert.False(t, IsTerminalStatus(JobStatusRunning))
	assert.True(t, IsTerminalStatus(JobStatusCompleted))
	assert.True(t, IsTerminalStatus(JobStatusPartiallyFailed))
	assert.True(t, IsTerminalStatus(JobStatusFailed))
	assert.True(t, IsTerminalStatus(JobStatusCanceled))
}
