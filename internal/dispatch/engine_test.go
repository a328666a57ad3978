package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someshjy/mailflow-be/internal/dispatch/domain"
	"github.com/someshjy/mailflow-be/internal/mail"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory Store implementation
type fakeStore struct {
	job             *domain.Job
	claimErr        error
	recipients      []domain.Recipient
	errorDetails    map[int]string
	cancelRequested bool
	finished        bool
	finishedStatus  string
	finishedMessage string
	markSentErr     error
}

func newFakeStore(job *domain.Job, addresses []string) *fakeStore {
	s := &fakeStore{
		job:          job,
		errorDetails: make(map[int]string),
	}
	for i, addr := range addresses {
		outcome := domain.OutcomeQueued
		if !validForTest(addr) {
			outcome = domain.OutcomeSkippedInvalid
		}
		s.recipients = append(s.recipients, domain.Recipient{
			Position: i,
			Address:  addr,
			Outcome:  outcome,
		})
	}
	return s
}

// validForTest mirrors the submission-time syntax check: anything without an
// @ was recorded SKIPPED_INVALID before dispatch
func validForTest(addr string) bool {
	for _, c := range addr {
		if c == '@' {
			return true
		}
	}
	return false
}

func (s *fakeStore) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	return s.job, nil
}

func (s *fakeStore) ListRecipients(ctx context.Context, jobID string) ([]domain.Recipient, error) {
	out := make([]domain.Recipient, len(s.recipients))
	copy(out, s.recipients)
	return out, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, jobID string, position int) error {
	if s.markSentErr != nil {
		return s.markSentErr
	}
	s.recipients[position].Outcome = domain.OutcomeSent
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, jobID string, position int, detail string) error {
	s.recipients[position].Outcome = domain.OutcomeFailed
	s.errorDetails[position] = detail
	return nil
}

func (s *fakeStore) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	return s.cancelRequested, nil
}

func (s *fakeStore) FinishJob(ctx context.Context, jobID, status, errorMessage string) error {
	s.finished = true
	s.finishedStatus = status
	s.finishedMessage = errorMessage
	return nil
}

func (s *fakeStore) OutcomeCounts(ctx context.Context, jobID string) (domain.OutcomeCounts, error) {
	var counts domain.OutcomeCounts
	for _, r := range s.recipients {
		switch r.Outcome {
		case domain.OutcomeQueued:
			counts.Queued++
		case domain.OutcomeSent:
			counts.Sent++
		case domain.OutcomeFailed:
			counts.Failed++
		case domain.OutcomeSkippedInvalid:
			counts.Skipped++
		}
	}
	return counts, nil
}

func (s *fakeStore) outcomeOf(address string) string {
	for _, r := range s.recipients {
		if r.Address == address {
			return r.Outcome
		}
	}
	return ""
}

// fakeTransport records sent addresses and fails configured ones
type fakeTransport struct {
	sent      []string
	failFor   map[string]error
	afterSend func(sendCount int)
}

func (t *fakeTransport) Send(ctx context.Context, msg *mail.Message) error {
	t.sent = append(t.sent, msg.To)
	defer func() {
		if t.afterSend != nil {
			t.afterSend(len(t.sent))
		}
	}()
	if err, ok := t.failFor[msg.To]; ok {
		return err
	}
	return nil
}

func testJob(batchSize int) *domain.Job {
	return &domain.Job{
		JobID:     "c2a7e4de-8f3b-4e0e-9a41-6f1f5cf2a111",
		Subject:   "Hello",
		Body:      "World",
		BatchSize: batchSize,
	}
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("all sends succeed", func(t *testing.T) {
		store := newFakeStore(testJob(2), []string{"a@x.com", "b@x.com", "c@x.com"})
		transport := &fakeTransport{}
		engine := NewEngine(store, transport, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.NoError(t, err)

		// Outcomes recorded in deduplicated submission order
		assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, transport.sent)
		for _, addr := range []string{"a@x.com", "b@x.com", "c@x.com"} {
			assert.Equal(t, domain.OutcomeSent, store.outcomeOf(addr))
		}

		assert.True(t, store.finished)
		assert.Equal(t, domain.JobStatusCompleted, store.finishedStatus)
	})

	t.Run("single recipient failure does not abort batch or job", func(t *testing.T) {
		store := newFakeStore(testJob(2), []string{"a@x.com", "b@x.com", "c@x.com"})
		transport := &fakeTransport{
			failFor: map[string]error{
				"b@x.com": &mail.SendError{Provider: "sendgrid", StatusCode: 400, Detail: "mailbox unavailable"},
			},
		}
		engine := NewEngine(store, transport, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.NoError(t, err)

		assert.Equal(t, domain.OutcomeSent, store.outcomeOf("a@x.com"))
		assert.Equal(t, domain.OutcomeFailed, store.outcomeOf("b@x.com"))
		assert.Equal(t, domain.OutcomeSent, store.outcomeOf("c@x.com"))
		assert.Contains(t, store.errorDetails[1], "mailbox unavailable")

		assert.Equal(t, domain.JobStatusPartiallyFailed, store.finishedStatus)
	})

	t.Run("invalid recipients do not block valid ones", func(t *testing.T) {
		store := newFakeStore(testJob(10), []string{"not-an-email", "c@x.com"})
		transport := &fakeTransport{}
		engine := NewEngine(store, transport, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.NoError(t, err)

		// Only the valid recipient reaches the transport
		assert.Equal(t, []string{"c@x.com"}, transport.sent)
		assert.Equal(t, domain.OutcomeSkippedInvalid, store.outcomeOf("not-an-email"))
		assert.Equal(t, domain.OutcomeSent, store.outcomeOf("c@x.com"))

		// Terminal status depends solely on the valid recipient's outcome
		assert.Equal(t, domain.JobStatusCompleted, store.finishedStatus)
	})

	t.Run("zero valid recipients fails immediately", func(t *testing.T) {
		store := newFakeStore(testJob(10), []string{"bad-one", "bad-two"})
		transport := &fakeTransport{}
		engine := NewEngine(store, transport, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.NoError(t, err)

		assert.Empty(t, transport.sent)
		assert.Equal(t, domain.JobStatusFailed, store.finishedStatus)
		assert.Equal(t, "no valid recipients", store.finishedMessage)
	})

	t.Run("all sends fail", func(t *testing.T) {
		store := newFakeStore(testJob(10), []string{"a@x.com", "b@x.com"})
		transport := &fakeTransport{
			failFor: map[string]error{
				"a@x.com": &mail.SendError{Provider: "resend", StatusCode: 500},
				"b@x.com": &mail.SendError{Provider: "resend", StatusCode: 500},
			},
		}
		engine := NewEngine(store, transport, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.NoError(t, err)

		assert.Equal(t, domain.JobStatusFailed, store.finishedStatus)
		assert.Equal(t, "all recipients failed", store.finishedMessage)
	})

	t.Run("cancellation between batches stops further batches", func(t *testing.T) {
		store := newFakeStore(testJob(2), []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"})
		transport := &fakeTransport{}
		// Cancel arrives while batch 1 is in flight; it is observed at the
		// batch boundary
		transport.afterSend = func(sendCount int) {
			if sendCount == 1 {
				store.cancelRequested = true
			}
		}
		engine := NewEngine(store, transport, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.NoError(t, err)

		// Batch 1 fully attempted, batch 2 untouched
		assert.Equal(t, []string{"a@x.com", "b@x.com"}, transport.sent)
		assert.Equal(t, domain.OutcomeSent, store.outcomeOf("a@x.com"))
		assert.Equal(t, domain.OutcomeSent, store.outcomeOf("b@x.com"))
		assert.Equal(t, domain.OutcomeQueued, store.outcomeOf("c@x.com"))
		assert.Equal(t, domain.OutcomeQueued, store.outcomeOf("d@x.com"))

		assert.Equal(t, domain.JobStatusCanceled, store.finishedStatus)
	})

	t.Run("cancellation before first batch sends nothing", func(t *testing.T) {
		store := newFakeStore(testJob(2), []string{"a@x.com", "b@x.com"})
		store.cancelRequested = true
		transport := &fakeTransport{}
		engine := NewEngine(store, transport, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.NoError(t, err)

		assert.Empty(t, transport.sent)
		assert.Equal(t, domain.JobStatusCanceled, store.finishedStatus)
	})

	t.Run("resume skips recipients with outcomes", func(t *testing.T) {
		store := newFakeStore(testJob(2), []string{"a@x.com", "b@x.com", "c@x.com"})
		store.recipients[0].Outcome = domain.OutcomeSent
		store.recipients[1].Outcome = domain.OutcomeFailed
		transport := &fakeTransport{}
		engine := NewEngine(store, transport, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.NoError(t, err)

		// Only the recipient without an outcome is attempted
		assert.Equal(t, []string{"c@x.com"}, transport.sent)
		assert.Equal(t, domain.JobStatusPartiallyFailed, store.finishedStatus)
	})

	t.Run("unclaimable job is not retried", func(t *testing.T) {
		store := newFakeStore(testJob(2), []string{"a@x.com"})
		store.claimErr = domain.ErrJobNotClaimable
		engine := NewEngine(store, &fakeTransport{}, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.ErrorIs(t, err, domain.ErrJobNotClaimable)

		var retryable *domain.RetryableError
		assert.False(t, errors.As(err, &retryable))
	})

	t.Run("claim failure is retryable", func(t *testing.T) {
		store := newFakeStore(testJob(2), []string{"a@x.com"})
		store.claimErr = fmt.Errorf("connection refused")
		engine := NewEngine(store, &fakeTransport{}, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.Error(t, err)

		var retryable *domain.RetryableError
		assert.True(t, errors.As(err, &retryable))
	})

	t.Run("outcome persistence failure aborts run with retryable error", func(t *testing.T) {
		store := newFakeStore(testJob(2), []string{"a@x.com", "b@x.com"})
		store.markSentErr = fmt.Errorf("connection reset")
		engine := NewEngine(store, &fakeTransport{}, testLogger())

		err := engine.Run(ctx, store.job.JobID)
		require.Error(t, err)

		var retryable *domain.RetryableError
		assert.True(t, errors.As(err, &retryable))
		assert.False(t, store.finished)
	})
}

func TestPartitionBatches(t *testing.T) {
	recipients := func(n int) []domain.Recipient {
		out := make([]domain.Recipient, n)
		for i := range out {
			out[i] = domain.Recipient{Position: i}
		}
		return out
	}

	tests := []struct {
		name      string
		count     int
		batchSize int
		wantSizes []int
	}{
		{"even split", 4, 2, []int{2, 2}},
		{"short last batch", 5, 2, []int{2, 2, 1}},
		{"single batch", 3, 10, []int{3}},
		{"empty input", 0, 2, nil},
		{"batch size one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := partitionBatches(recipients(tt.count), tt.batchSize)

			require.Len(t, batches, len(tt.wantSizes))
			for i, want := range tt.wantSizes {
				assert.Len(t, batches[i], want)
			}

			// Batches are consecutive and in order
			pos := 0
			for _, batch := range batches {
				for _, r := range batch {
					assert.Equal(t, pos, r.Position)
					pos++
				}
			}
		})
	}
}
