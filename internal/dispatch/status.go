package dispatch

import (
	"github.com/someshjy/mailflow-be/internal/dispatch/domain"
)

// TerminalStatus derives the terminal job status from recipient outcome counts
// once every batch has been processed without cancellation. Returns the status
// and a job-level error message when the whole job failed.
func TerminalStatus(counts domain.OutcomeCounts) (string, string) {
	switch {
	case counts.Attempted() == 0:
		return domain.JobStatusFailed, "no valid recipients"
	case counts.Sent == 0:
		return domain.JobStatusFailed, "all recipients failed"
	case counts.Failed > 0:
		return domain.JobStatusPartiallyFailed, ""
	default:
		return domain.JobStatusCompleted, ""
	}
}
