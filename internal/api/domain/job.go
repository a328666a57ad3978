package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

const (
	JobStatusPending         = "PENDING"
	JobStatusRunning         = "RUNNING"
	JobStatusCompleted       = "COMPLETED"
	JobStatusPartiallyFailed = "PARTIALLY_FAILED"
	JobStatusFailed          = "FAILED"
	JobStatusCanceled        = "CANCELED"
)

const (
	OutcomeQueued         = "QUEUED"
	OutcomeSent           = "SENT"
	OutcomeFailed         = "FAILED"
	OutcomeSkippedInvalid = "SKIPPED_INVALID"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal is returned when canceling a job that already reached a terminal state
	ErrJobTerminal = errors.New("job is in a terminal state")
)

// IsTerminalStatus reports whether no further status transitions are possible
func IsTerminalStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusPartiallyFailed, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// ValidationError describes a submission rejected for bad input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RecipientPlan is one deduplicated recipient with its submission-time outcome,
// either QUEUED or SKIPPED_INVALID.
type RecipientPlan struct {
	Position int
	Address  string
	Outcome  string
}

// ValidAddress reports whether addr is a syntactically valid bare email
// address. Display names are not accepted and the domain must contain a dot.
func ValidAddress(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return false
	}

	at := strings.LastIndex(parsed.Address, "@")
	if at < 0 {
		return false
	}

	return strings.Contains(parsed.Address[at+1:], ".")
}

// PlanRecipients deduplicates the submitted recipient list preserving
// first-seen order and classifies each distinct address as QUEUED or
// SKIPPED_INVALID. Comparison is case-insensitive; blank entries are dropped.
// Returns a ValidationError when nothing remains after deduplication.
func PlanRecipients(addresses []string) ([]RecipientPlan, error) {
	seen := make(map[string]struct{}, len(addresses))
	plans := make([]RecipientPlan, 0, len(addresses))

	for _, raw := range addresses {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}

		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		outcome := OutcomeQueued
		if !ValidAddress(addr) {
			outcome = OutcomeSkippedInvalid
		}

		plans = append(plans, RecipientPlan{
			Position: len(plans),
			Address:  addr,
			Outcome:  outcome,
		})
	}

	if len(plans) == 0 {
		return nil, NewValidationError("recipients", "must contain at least one address")
	}

	return plans, nil
}
