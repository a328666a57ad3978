package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/someshjy/mailflow-be/internal/api/domain"
	"github.com/someshjy/mailflow-be/internal/api/model"
	"github.com/someshjy/mailflow-be/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// CreateJob persists a job together with one outcome row per deduplicated
// recipient in a single transaction.
func (s *Storage) CreateJob(ctx context.Context, job *model.Job, recipients []domain.RecipientPlan) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	jobQuery := `
		INSERT INTO bulk_jobs (
			job_id, name, subject, body, batch_size, batch_delay_ms,
			status, cancel_requested, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, FALSE, $8, $9
		)
	`

	_, err = tx.ExecContext(
		ctx,
		jobQuery,
		job.JobID,
		job.Name,
		job.Subject,
		job.Body,
		job.BatchSize,
		job.BatchDelayMS,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	recipientQuery := `
		INSERT INTO bulk_recipients (job_id, position, address, outcome)
		VALUES ($1, $2, $3, $4)
	`

	for _, r := range recipients {
		if _, err := tx.ExecContext(ctx, recipientQuery, job.JobID, r.Position, r.Address, r.Outcome); err != nil {
			return fmt.Errorf("failed to create recipient outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job creation: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT
			job_id, name, subject, body, batch_size, batch_delay_ms,
			status, cancel_requested, error_message,
			created_at, updated_at, started_at, completed_at
		FROM bulk_jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// OutcomeCounts holds the per-outcome recipient counts for one job
type OutcomeCounts struct {
	Queued  int
	Sent    int
	Failed  int
	Skipped int
}

func (c OutcomeCounts) Total() int {
	return c.Queued + c.Sent + c.Failed + c.Skipped
}

func (s *Storage) GetOutcomeCounts(ctx context.Context, jobID string) (OutcomeCounts, error) {
	query := `
		SELECT outcome, COUNT(*) AS count
		FROM bulk_recipients
		WHERE job_id = $1
		GROUP BY outcome
	`

	rows := []struct {
		Outcome string `db:"outcome"`
		Count   int    `db:"count"`
	}{}

	if err := s.db.SelectContext(ctx, &rows, query, jobID); err != nil {
		return OutcomeCounts{}, fmt.Errorf("failed to count outcomes: %w", err)
	}

	var counts OutcomeCounts
	for _, row := range rows {
		switch row.Outcome {
		case domain.OutcomeQueued:
			counts.Queued = row.Count
		case domain.OutcomeSent:
			counts.Sent = row.Count
		case domain.OutcomeFailed:
			counts.Failed = row.Count
		case domain.OutcomeSkippedInvalid:
			counts.Skipped = row.Count
		}
	}

	return counts, nil
}

func (s *Storage) ListRecipientOutcomes(ctx context.Context, jobID string) ([]model.RecipientOutcome, error) {
	query := `
		SELECT job_id, position, address, outcome, error_detail, sent_at
		FROM bulk_recipients
		WHERE job_id = $1
		ORDER BY position
	`

	var outcomes []model.RecipientOutcome
	if err := s.db.SelectContext(ctx, &outcomes, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list recipient outcomes: %w", err)
	}

	return outcomes, nil
}

// RequestCancel sets the cooperative cancellation flag. The dispatch engine
// observes the flag at batch boundaries; setting it twice is harmless.
func (s *Storage) RequestCancel(ctx context.Context, jobID string) error {
	query := `
		UPDATE bulk_jobs
		SET cancel_requested = TRUE,
		    updated_at = NOW()
		WHERE job_id = $1
		  AND status IN ($2, $3)
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusPending, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to request cancellation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish unknown job from terminal job
		var status string
		err := s.db.GetContext(ctx, &status, `SELECT status FROM bulk_jobs WHERE job_id = $1`, jobID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check job status: %w", err)
		}
		return domain.ErrJobTerminal
	}

	return nil
}

type JobFilter struct {
	Status   string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `
        SELECT
            job_id, name, subject, body, batch_size, batch_delay_ms,
            status, cancel_requested, error_message,
            created_at, updated_at, started_at, completed_at
        FROM bulk_jobs
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// JobStats aggregates counts across all jobs for reporting
type JobStats struct {
	JobsByStatus    map[string]int
	TotalJobs       int
	TotalSent       int
	TotalFailed     int
	TotalRecipients int
}

func (s *Storage) GetStats(ctx context.Context) (*JobStats, error) {
	stats := &JobStats{JobsByStatus: make(map[string]int)}

	statusRows := []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}{}

	err := s.db.SelectContext(ctx, &statusRows, `
		SELECT status, COUNT(*) AS count
		FROM bulk_jobs
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by status: %w", err)
	}

	for _, row := range statusRows {
		stats.JobsByStatus[row.Status] = row.Count
		stats.TotalJobs += row.Count
	}

	err = s.db.GetContext(ctx, &stats.TotalRecipients, `SELECT COUNT(*) FROM bulk_recipients`)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipients: %w", err)
	}

	outcomeRows := []struct {
		Outcome string `db:"outcome"`
		Count   int    `db:"count"`
	}{}

	err = s.db.SelectContext(ctx, &outcomeRows, `
		SELECT outcome, COUNT(*) AS count
		FROM bulk_recipients
		WHERE outcome IN ($1, $2)
		GROUP BY outcome
	`, domain.OutcomeSent, domain.OutcomeFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}

	for _, row := range outcomeRows {
		switch row.Outcome {
		case domain.OutcomeSent:
			stats.TotalSent = row.Count
		case domain.OutcomeFailed:
			stats.TotalFailed = row.Count
		}
	}

	return stats, nil
}
