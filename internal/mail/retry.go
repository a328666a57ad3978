package mail

import (
	"context"
	"log/slog"
	"time"
)

// retryTransport retries transient send failures with exponential backoff.
// Permanent provider rejections (4xx other than 429) are returned immediately.
type retryTransport struct {
	next      Transport
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// WithRetry wraps a transport with bounded retries for transient failures
func WithRetry(next Transport, attempts int, baseDelay time.Duration, logger *slog.Logger) Transport {
	if attempts <= 0 {
		attempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	return &retryTransport{
		next:      next,
		attempts:  attempts,
		baseDelay: baseDelay,
		logger:    logger,
	}
}

func (t *retryTransport) Send(ctx context.Context, msg *Message) error {
	var lastErr error

	for attempt := 0; attempt < t.attempts; attempt++ {
		if attempt > 0 {
			backoffDelay := t.baseDelay * time.Duration(uint(1)<<uint(attempt-1))
			t.logger.Warn("Transient send failure, retrying...",
				slog.String("to", msg.To),
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", t.attempts),
				slog.Duration("retry_after", backoffDelay),
				slog.Any("error", lastErr),
			)

			select {
			case <-time.After(backoffDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := t.next.Send(ctx, msg)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}

		lastErr = err
	}

	return lastErr
}
