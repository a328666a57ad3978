package domain

import "errors"

var (
	// ErrJobNotClaimable is returned when a job cannot transition to RUNNING,
	// either because it does not exist or already reached a terminal state
	ErrJobNotClaimable = errors.New("job not claimable")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
