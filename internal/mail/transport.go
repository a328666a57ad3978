// Package mail provides the outbound email transport used by the dispatch
// engine. Concrete providers (SendGrid, Resend) sit behind the single
// Transport capability so they can be swapped through configuration alone.
package mail

import (
	"context"
	"errors"
	"fmt"
)

const (
	ContentTypePlain = "text/plain"
	ContentTypeHTML  = "text/html"
)

// Message is one outbound email
type Message struct {
	To          string
	Subject     string
	Body        string
	ContentType string
}

// Transport sends a single message through an email provider
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// SendError describes a provider rejection of a single send
type SendError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *SendError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s send failed with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s send failed with status %d: %s", e.Provider, e.StatusCode, e.Detail)
}

// Retryable reports whether the provider failure is worth retrying.
// Rate limiting and provider-side errors are transient; other 4xx responses
// (bad recipient, bad payload, bad credentials) are permanent.
func (e *SendError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsRetryable reports whether err should be retried. Network-level failures
// without a provider response are treated as transient.
func IsRetryable(err error) bool {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Retryable()
	}
	return err != nil
}
