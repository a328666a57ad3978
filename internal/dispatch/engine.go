package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/someshjy/mailflow-be/internal/dispatch/domain"
	"github.com/someshjy/mailflow-be/internal/mail"
)

// Store is the persistence surface the engine drives a job through.
// Implemented by storage.Storage; faked in tests.
type Store interface {
	ClaimJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListRecipients(ctx context.Context, jobID string) ([]domain.Recipient, error)
	MarkSent(ctx context.Context, jobID string, position int) error
	MarkFailed(ctx context.Context, jobID string, position int, detail string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)
	FinishJob(ctx context.Context, jobID, status, errorMessage string) error
	OutcomeCounts(ctx context.Context, jobID string) (domain.OutcomeCounts, error)
}

// Engine drives a single bulk job from PENDING/RUNNING to a terminal state,
// respecting batch size, inter-batch pacing, and cooperative cancellation.
// A recipient's transport failure never aborts the batch or the job; a
// failure to persist an outcome aborts the run with a retryable error so the
// queue redelivers and the run resumes from the first recipient without an
// outcome.
type Engine struct {
	logger    *slog.Logger
	store     Store
	transport mail.Transport
}

// NewEngine creates a dispatch engine
func NewEngine(store Store, transport mail.Transport, logger *slog.Logger) *Engine {
	return &Engine{
		logger:    logger,
		store:     store,
		transport: transport,
	}
}

// Run executes one dispatch attempt for jobID. Safe to re-invoke on a job
// already RUNNING: recipients with recorded outcomes are never re-sent.
func (e *Engine) Run(ctx context.Context, jobID string) error {
	job, err := e.store.ClaimJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotClaimable) {
			e.logger.Warn("Job not claimable, skipping",
				slog.String("job_id", jobID),
			)
			return err
		}
		return domain.NewRetryableError(err)
	}

	e.logger.Info("Dispatch run started",
		slog.String("job_id", job.JobID),
		slog.Int("batch_size", job.BatchSize),
		slog.Duration("batch_delay", job.BatchDelay),
	)

	recipients, err := e.store.ListRecipients(ctx, job.JobID)
	if err != nil {
		return domain.NewRetryableError(err)
	}

	valid := 0
	pending := make([]domain.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.Outcome != domain.OutcomeSkippedInvalid {
			valid++
		}
		if r.Outcome == domain.OutcomeQueued {
			pending = append(pending, r)
		}
	}

	if valid == 0 {
		e.logger.Warn("Job has no valid recipients",
			slog.String("job_id", job.JobID),
		)
		return e.finish(ctx, job.JobID, domain.JobStatusFailed, "no valid recipients")
	}

	// Cancellation may have been requested before the job was claimed
	canceled, err := e.store.CancelRequested(ctx, job.JobID)
	if err != nil {
		return domain.NewRetryableError(err)
	}
	if canceled {
		return e.cancel(ctx, job.JobID)
	}

	batches := partitionBatches(pending, job.BatchSize)

	for i, batch := range batches {
		if i > 0 && job.BatchDelay > 0 {
			select {
			case <-time.After(job.BatchDelay):
			case <-ctx.Done():
				return domain.NewRetryableError(ctx.Err())
			}
		}

		if err := e.sendBatch(ctx, job, batch); err != nil {
			return err
		}

		// Cancellation is observed only at batch boundaries; the batch that
		// just ran may have landed after a cancel request, which is accepted.
		// A cancel arriving during the final batch changes nothing: every
		// recipient has been attempted, so the terminal status stands.
		if i < len(batches)-1 {
			canceled, err := e.store.CancelRequested(ctx, job.JobID)
			if err != nil {
				return domain.NewRetryableError(err)
			}
			if canceled {
				return e.cancel(ctx, job.JobID)
			}
		}
	}

	counts, err := e.store.OutcomeCounts(ctx, job.JobID)
	if err != nil {
		return domain.NewRetryableError(err)
	}

	status, errorMessage := TerminalStatus(counts)

	e.logger.Info("Dispatch run finished",
		slog.String("job_id", job.JobID),
		slog.String("status", status),
		slog.Int("sent", counts.Sent),
		slog.Int("failed", counts.Failed),
		slog.Int("skipped", counts.Skipped),
	)

	return e.finish(ctx, job.JobID, status, errorMessage)
}

// sendBatch attempts every recipient of one batch, isolating per-recipient
// transport failures
func (e *Engine) sendBatch(ctx context.Context, job *domain.Job, batch []domain.Recipient) error {
	for _, r := range batch {
		msg := &mail.Message{
			To:      r.Address,
			Subject: job.Subject,
			Body:    job.Body,
		}

		sendErr := e.transport.Send(ctx, msg)
		if sendErr != nil && ctx.Err() != nil {
			// Process shutdown, not a provider verdict: leave the recipient
			// unattempted so redelivery retries it
			return domain.NewRetryableError(ctx.Err())
		}

		if sendErr != nil {
			e.logger.Warn("Recipient send failed",
				slog.String("job_id", job.JobID),
				slog.String("address", r.Address),
				slog.String("error", sendErr.Error()),
			)
			if err := e.store.MarkFailed(ctx, job.JobID, r.Position, sendErr.Error()); err != nil {
				return domain.NewRetryableError(err)
			}
			continue
		}

		if err := e.store.MarkSent(ctx, job.JobID, r.Position); err != nil {
			return domain.NewRetryableError(err)
		}
	}

	return nil
}

func (e *Engine) cancel(ctx context.Context, jobID string) error {
	e.logger.Info("Cancellation observed, stopping dispatch",
		slog.String("job_id", jobID),
	)
	return e.finish(ctx, jobID, domain.JobStatusCanceled, "")
}

func (e *Engine) finish(ctx context.Context, jobID, status, errorMessage string) error {
	if err := e.store.FinishJob(ctx, jobID, status, errorMessage); err != nil {
		return domain.NewRetryableError(err)
	}
	return nil
}

// partitionBatches splits recipients into consecutive batches of batchSize;
// the last batch may be smaller
func partitionBatches(recipients []domain.Recipient, batchSize int) [][]domain.Recipient {
	if batchSize <= 0 {
		batchSize = 1
	}

	var batches [][]domain.Recipient
	for start := 0; start < len(recipients); start += batchSize {
		end := start + batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, recipients[start:end])
	}

	return batches
}
