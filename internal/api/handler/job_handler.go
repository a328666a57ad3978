package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/someshjy/mailflow-be/internal/api/domain"
	"github.com/someshjy/mailflow-be/internal/api/dto"
	"github.com/someshjy/mailflow-be/internal/api/model"
	"github.com/someshjy/mailflow-be/internal/api/storage"
)

// SubmitJob handles POST /api/v1/bulk/jobs
// Validates the request, persists the job with its recipient outcomes in
// PENDING state, and enqueues the job id for the dispatch service.
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if strings.TrimSpace(req.Subject) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject must not be empty"})
		return
	}

	if strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must not be empty"})
		return
	}

	batchSize := h.defaultBatchSize
	if req.BatchSize != nil {
		if *req.BatchSize <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch_size must be greater than 0"})
			return
		}
		batchSize = *req.BatchSize
	}

	batchDelayMS := int(h.defaultBatchDelay / time.Millisecond)
	if req.BatchDelayMS != nil {
		if *req.BatchDelayMS < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch_delay_ms must not be negative"})
			return
		}
		batchDelayMS = *req.BatchDelayMS
	}

	recipients, err := domain.PlanRecipients(req.Recipients)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate recipients"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Bulk email " + time.Now().UTC().Format("2006-01-02 15:04:05")
	}

	now := time.Now().UTC()
	job := model.Job{
		JobID:        uuid.New().String(),
		Name:         name,
		Subject:      req.Subject,
		Body:         req.Body,
		BatchSize:    batchSize,
		BatchDelayMS: batchDelayMS,
		Status:       domain.JobStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.storage.CreateJob(c.Request.Context(), &job, recipients); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	if err := h.rabbitClient.PublishJob(c.Request.Context(), job.JobID); err != nil {
		// The job stays PENDING in the database; it can be re-enqueued
		h.logger.Error("Failed to enqueue job for dispatch",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Job created but could not be enqueued for dispatch",
			"job_id": job.JobID,
		})
		return
	}

	h.logger.Info("Bulk job submitted",
		slog.String("job_id", job.JobID),
		slog.Int("recipients", len(recipients)),
		slog.Int("batch_size", batchSize),
	)

	c.JSON(http.StatusCreated, gin.H{
		"job_id":           job.JobID,
		"name":             job.Name,
		"status":           job.Status,
		"recipients_count": len(recipients),
		"batch_size":       job.BatchSize,
		"batch_delay_ms":   job.BatchDelayMS,
		"created_at":       job.CreatedAt.Format(time.RFC3339),
	})
}

// GetJob handles GET /api/v1/bulk/jobs/:job_id
// Returns the job with its derived status snapshot and per-recipient outcomes.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	ctx := c.Request.Context()

	job, err := h.storage.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	counts, err := h.storage.GetOutcomeCounts(ctx, jobID)
	if err != nil {
		h.logger.Error("Failed to get outcome counts", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job status"})
		return
	}

	outcomes, err := h.storage.ListRecipientOutcomes(ctx, jobID)
	if err != nil {
		h.logger.Error("Failed to list recipient outcomes", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job status"})
		return
	}

	resp := dto.JobStatusResponse{
		JobDTO: toJobDTO(job),
		Counts: dto.OutcomeCountsDTO{
			Queued:  counts.Queued,
			Sent:    counts.Sent,
			Failed:  counts.Failed,
			Skipped: counts.Skipped,
			Total:   counts.Total(),
		},
		Recipients: make([]dto.RecipientOutcomeDTO, len(outcomes)),
	}

	for i, o := range outcomes {
		r := dto.RecipientOutcomeDTO{
			Address: o.Address,
			Outcome: o.Outcome,
		}
		if o.ErrorDetail.Valid {
			r.ErrorDetail = o.ErrorDetail.String
		}
		if o.SentAt.Valid {
			r.SentAt = o.SentAt.Time.Format(time.RFC3339)
		}
		resp.Recipients[i] = r
	}

	c.JSON(http.StatusOK, resp)
}

// ListJobs handles GET /api/v1/bulk/jobs
// Lists jobs with optional status filtering and cursor pagination.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = toJobDTO(&job)
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		cursorObj := storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		}
		nextCursor, err = EncodeJobCursor(&cursorObj)
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// CancelJob handles POST /api/v1/bulk/jobs/:job_id/cancel
// Sets the cooperative cancellation flag; the dispatch engine observes it at
// batch boundaries, so at most one batch may still be attempted afterwards.
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	err := h.storage.RequestCancel(c.Request.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.Is(err, domain.ErrJobTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": "Job is already in a terminal state"})
		default:
			h.logger.Error("Failed to cancel job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel job"})
		}
		return
	}

	h.logger.Info("Job cancellation requested", slog.String("job_id", jobID))

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  jobID,
		"message": "Cancellation requested; in-flight batch may still complete",
	})
}

// ValidateRecipients handles POST /api/v1/bulk/validate-recipients
// Checks address syntax without creating a job.
func (h *JobHandler) ValidateRecipients(c *gin.Context) {
	var req dto.ValidateRecipientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	resp := dto.ValidateRecipientsResponse{
		Results: make([]dto.RecipientValidationDTO, len(req.Recipients)),
	}

	for i, addr := range req.Recipients {
		valid := domain.ValidAddress(strings.TrimSpace(addr))
		resp.Results[i] = dto.RecipientValidationDTO{
			Address: addr,
			Valid:   valid,
		}
		if valid {
			resp.ValidCount++
		} else {
			resp.InvalidCount++
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /api/v1/bulk/stats
// Returns aggregate job and recipient counts for reporting.
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.storage.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}

	resp := dto.StatsResponse{
		JobsByStatus:    stats.JobsByStatus,
		TotalJobs:       stats.TotalJobs,
		TotalSent:       stats.TotalSent,
		TotalFailed:     stats.TotalFailed,
		TotalRecipients: stats.TotalRecipients,
	}

	attempted := stats.TotalSent + stats.TotalFailed
	if attempted > 0 {
		resp.SuccessRate = float64(stats.TotalSent) / float64(attempted) * 100
	}

	c.JSON(http.StatusOK, resp)
}

func toJobDTO(job *model.Job) dto.JobDTO {
	d := dto.JobDTO{
		JobID:        job.JobID,
		Name:         job.Name,
		Subject:      job.Subject,
		BatchSize:    job.BatchSize,
		BatchDelayMS: job.BatchDelayMS,
		Status:       job.Status,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
	}

	if job.ErrorMessage.Valid {
		d.ErrorMessage = job.ErrorMessage.String
	}
	if job.StartedAt.Valid {
		d.StartedAt = job.StartedAt.Time.Format(time.RFC3339)
	}
	if job.CompletedAt.Valid {
		d.CompletedAt = job.CompletedAt.Time.Format(time.RFC3339)
	}

	return d
}
