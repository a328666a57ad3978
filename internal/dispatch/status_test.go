package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/someshjy/mailflow-be/internal/dispatch/domain"
)

func TestTerminalStatus(t *testing.T) {
	tests := []struct {
		name        string
		counts      domain.OutcomeCounts
		wantStatus  string
		wantMessage string
	}{
		{
			name:       "every recipient sent",
			counts:     domain.OutcomeCounts{Sent: 3},
			wantStatus: domain.JobStatusCompleted,
		},
		{
			name:       "sent with skipped invalid still completed",
			counts:     domain.OutcomeCounts{Sent: 2, Skipped: 1},
			wantStatus: domain.JobStatusCompleted,
		},
		{
			name:       "mixed sent and failed",
			counts:     domain.OutcomeCounts{Sent: 2, Failed: 1},
			wantStatus: domain.JobStatusPartiallyFailed,
		},
		{
			name:        "every attempt failed",
			counts:      domain.OutcomeCounts{Failed: 3},
			wantStatus:  domain.JobStatusFailed,
			wantMessage: "all recipients failed",
		},
		{
			name:        "nothing attempted",
			counts:      domain.OutcomeCounts{Skipped: 2},
			wantStatus:  domain.JobStatusFailed,
			wantMessage: "no valid recipients",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := TerminalStatus(tt.counts)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}
