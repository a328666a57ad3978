package model

import (
	"database/sql"
	"time"
)

type Job struct {
	JobID           string         `db:"job_id"`
	Name            string         `db:"name"`
	Subject         string         `db:"subject"`
	Body            string         `db:"body"`
	BatchSize       int            `db:"batch_size"`
	BatchDelayMS    int            `db:"batch_delay_ms"`
	Status          string         `db:"status"`
	CancelRequested bool           `db:"cancel_requested"`
	ErrorMessage    sql.NullString `db:"error_message"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	StartedAt       sql.NullTime   `db:"started_at"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
}

type RecipientOutcome struct {
	JobID       string         `db:"job_id"`
	Position    int            `db:"position"`
	Address     string         `db:"address"`
	Outcome     string         `db:"outcome"`
	ErrorDetail sql.NullString `db:"error_detail"`
	SentAt      sql.NullTime   `db:"sent_at"`
}
