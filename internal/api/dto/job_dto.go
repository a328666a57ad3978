package dto

type SubmitJobRequest struct {
	Name         string   `json:"name"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Recipients   []string `json:"recipients"`
	BatchSize    *int     `json:"batch_size"`
	BatchDelayMS *int     `json:"batch_delay_ms"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID        string `json:"job_id"`
	Name         string `json:"name"`
	Subject      string `json:"subject"`
	BatchSize    int    `json:"batch_size"`
	BatchDelayMS int    `json:"batch_delay_ms"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// JobStatusResponse is the snapshot returned by GET /bulk/jobs/:job_id
type JobStatusResponse struct {
	JobDTO
	Counts     OutcomeCountsDTO      `json:"counts"`
	Recipients []RecipientOutcomeDTO `json:"recipients,omitempty"`
}

type OutcomeCountsDTO struct {
	Queued  int `json:"queued"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

type RecipientOutcomeDTO struct {
	Address     string `json:"address"`
	Outcome     string `json:"outcome"`
	ErrorDetail string `json:"error_detail,omitempty"`
	SentAt      string `json:"sent_at,omitempty"`
}

type ValidateRecipientsRequest struct {
	Recipients []string `json:"recipients"`
}

type RecipientValidationDTO struct {
	Address string `json:"address"`
	Valid   bool   `json:"valid"`
}

type ValidateRecipientsResponse struct {
	Results      []RecipientValidationDTO `json:"results"`
	ValidCount   int                      `json:"valid_count"`
	InvalidCount int                      `json:"invalid_count"`
}

type StatsResponse struct {
	JobsByStatus    map[string]int `json:"jobs_by_status"`
	TotalJobs       int            `json:"total_jobs"`
	TotalSent       int            `json:"total_sent"`
	TotalFailed     int            `json:"total_failed"`
	TotalRecipients int            `json:"total_recipients"`
	SuccessRate     float64        `json:"success_rate"`
}
