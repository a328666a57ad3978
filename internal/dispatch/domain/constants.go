package domain

// Job status constants
const (
	JobStatusPending         = "PENDING"
	JobStatusRunning         = "RUNNING"
	JobStatusCompleted       = "COMPLETED"
	JobStatusPartiallyFailed = "PARTIALLY_FAILED"
	JobStatusFailed          = "FAILED"
	JobStatusCanceled        = "CANCELED"
)

// Recipient outcome constants
const (
	OutcomeQueued         = "QUEUED"
	OutcomeSent           = "SENT"
	OutcomeFailed         = "FAILED"
	OutcomeSkippedInvalid = "SKIPPED_INVALID"
)
