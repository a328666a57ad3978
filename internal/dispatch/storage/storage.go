package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/someshjy/mailflow-be/internal/dispatch/domain"
)

// Storage handles all database operations for the dispatch service
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimJob transitions a job to RUNNING. Claiming a job already RUNNING
// succeeds so a dispatch run can resume after a process restart; terminal
// and unknown jobs return ErrJobNotClaimable.
func (s *Storage) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		UPDATE bulk_jobs
		SET status = $1,
		    started_at = COALESCE(started_at, NOW()),
		    updated_at = NOW()
		WHERE job_id = $2
		  AND status IN ($3, $1)
		RETURNING job_id, subject, body, batch_size, batch_delay_ms
	`

	var (
		job          domain.Job
		batchDelayMS int
	)

	err := s.db.QueryRowContext(ctx, query, domain.JobStatusRunning, jobID, domain.JobStatusPending).Scan(
		&job.JobID,
		&job.Subject,
		&job.Body,
		&job.BatchSize,
		&batchDelayMS,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - terminal or not found",
				slog.String("job_id", jobID),
			)
			return nil, domain.ErrJobNotClaimable
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.BatchDelay = time.Duration(batchDelayMS) * time.Millisecond

	s.logger.Info("Job claimed",
		slog.String("job_id", jobID),
		slog.Int("batch_size", job.BatchSize),
	)

	return &job, nil
}

// ListRecipients returns a job's recipients in deduplicated submission order
func (s *Storage) ListRecipients(ctx context.Context, jobID string) ([]domain.Recipient, error) {
	query := `
		SELECT position, address, outcome
		FROM bulk_recipients
		WHERE job_id = $1
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.Position, &r.Address, &r.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recipients: %w", err)
	}

	return recipients, nil
}

// MarkSent records a successful send. Write-once: only a QUEUED outcome
// transitions, so a concurrent or resumed run cannot overwrite it.
func (s *Storage) MarkSent(ctx context.Context, jobID string, position int) error {
	query := `
		UPDATE bulk_recipients
		SET outcome = $1,
		    sent_at = NOW()
		WHERE job_id = $2
		  AND position = $3
		  AND outcome = $4
	`

	_, err := s.db.ExecContext(ctx, query, domain.OutcomeSent, jobID, position, domain.OutcomeQueued)
	if err != nil {
		return fmt.Errorf("failed to mark recipient sent: %w", err)
	}

	return nil
}

// MarkFailed records a transport failure with its error detail
func (s *Storage) MarkFailed(ctx context.Context, jobID string, position int, detail string) error {
	query := `
		UPDATE bulk_recipients
		SET outcome = $1,
		    error_detail = $2,
		    sent_at = NOW()
		WHERE job_id = $3
		  AND position = $4
		  AND outcome = $5
	`

	_, err := s.db.ExecContext(ctx, query, domain.OutcomeFailed, detail, jobID, position, domain.OutcomeQueued)
	if err != nil {
		return fmt.Errorf("failed to mark recipient failed: %w", err)
	}

	return nil
}

// CancelRequested reads the cooperative cancellation flag
func (s *Storage) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	var canceled bool
	err := s.db.GetContext(ctx, &canceled, `SELECT cancel_requested FROM bulk_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to read cancellation flag: %w", err)
	}

	return canceled, nil
}

// FinishJob records the terminal status and completion timestamp
func (s *Storage) FinishJob(ctx context.Context, jobID, status, errorMessage string) error {
	query := `
		UPDATE bulk_jobs
		SET status = $1,
		    error_message = NULLIF($2, ''),
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
	`

	_, err := s.db.ExecContext(ctx, query, status, errorMessage, jobID)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}

	s.logger.Info("Job finished",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// OutcomeCounts aggregates recipient outcomes for one job
func (s *Storage) OutcomeCounts(ctx context.Context, jobID string) (domain.OutcomeCounts, error) {
	query := `
		SELECT outcome, COUNT(*) AS count
		FROM bulk_recipients
		WHERE job_id = $1
		GROUP BY outcome
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return domain.OutcomeCounts{}, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	var counts domain.OutcomeCounts
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return domain.OutcomeCounts{}, fmt.Errorf("failed to scan outcome count: %w", err)
		}

		switch outcome {
		case domain.OutcomeQueued:
			counts.Queued = count
		case domain.OutcomeSent:
			counts.Sent = count
		case domain.OutcomeFailed:
			counts.Failed = count
		case domain.OutcomeSkippedInvalid:
			counts.Skipped = count
		}
	}

	if err := rows.Err(); err != nil {
		return domain.OutcomeCounts{}, fmt.Errorf("failed to read outcome counts: %w", err)
	}

	return counts, nil
}
