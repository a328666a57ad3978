package mail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport returns the queued errors in order, then succeeds
type scriptedTransport struct {
	errs  []error
	calls int
}

func (t *scriptedTransport) Send(ctx context.Context, msg *Message) error {
	t.calls++
	if len(t.errs) == 0 {
		return nil
	}
	err := t.errs[0]
	t.errs = t.errs[1:]
	return err
}

func TestWithRetry(t *testing.T) {
	msg := &Message{To: "a@x.com", Subject: "s", Body: "b"}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		inner := &scriptedTransport{errs: []error{
			&SendError{Provider: "sendgrid", StatusCode: 503},
			&SendError{Provider: "sendgrid", StatusCode: 429},
		}}

		transport := WithRetry(inner, 3, time.Millisecond, discardLogger())

		err := transport.Send(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("permanent failure returned immediately", func(t *testing.T) {
		inner := &scriptedTransport{errs: []error{
			&SendError{Provider: "sendgrid", StatusCode: 400, Detail: "bad recipient"},
		}}

		transport := WithRetry(inner, 3, time.Millisecond, discardLogger())

		err := transport.Send(context.Background(), msg)
		require.Error(t, err)
		assert.Equal(t, 1, inner.calls)

		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.Equal(t, 400, sendErr.StatusCode)
	})

	t.Run("exhausted attempts return last error", func(t *testing.T) {
		inner := &scriptedTransport{errs: []error{
			&SendError{Provider: "resend", StatusCode: 500},
			&SendError{Provider: "resend", StatusCode: 502},
			&SendError{Provider: "resend", StatusCode: 503},
		}}

		transport := WithRetry(inner, 3, time.Millisecond, discardLogger())

		err := transport.Send(context.Background(), msg)
		require.Error(t, err)
		assert.Equal(t, 3, inner.calls)

		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.Equal(t, 503, sendErr.StatusCode)
	})

	t.Run("context cancellation stops retrying", func(t *testing.T) {
		inner := &scriptedTransport{errs: []error{
			&SendError{Provider: "resend", StatusCode: 500},
			&SendError{Provider: "resend", StatusCode: 500},
		}}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		transport := WithRetry(inner, 3, time.Minute, discardLogger())

		err := transport.Send(ctx, msg)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, inner.calls)
	})
}

func TestWithRateLimit(t *testing.T) {
	t.Run("passes sends through", func(t *testing.T) {
		inner := &scriptedTransport{}
		transport := WithRateLimit(inner, 1000, 10)

		for i := 0; i < 5; i++ {
			require.NoError(t, transport.Send(context.Background(), &Message{To: "a@x.com"}))
		}
		assert.Equal(t, 5, inner.calls)
	})

	t.Run("non-positive rps disables limiting", func(t *testing.T) {
		inner := &scriptedTransport{}
		transport := WithRateLimit(inner, 0, 0)
		assert.Equal(t, inner, transport)
	})
}
