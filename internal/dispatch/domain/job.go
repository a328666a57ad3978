package domain

import "time"

// Job is a bulk send job loaded for dispatch
type Job struct {
	JobID      string
	Subject    string
	Body       string
	BatchSize  int
	BatchDelay time.Duration
}

// Recipient is one deduplicated recipient of a job
type Recipient struct {
	Position int
	Address  string
	Outcome  string
}

// JobMessage represents a dispatch request from RabbitMQ
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}

// OutcomeCounts holds per-outcome recipient counts for one job
type OutcomeCounts struct {
	Queued  int
	Sent    int
	Failed  int
	Skipped int
}

// Attempted returns the number of recipients the transport was invoked for
func (c OutcomeCounts) Attempted() int {
	return c.Sent + c.Failed
}
