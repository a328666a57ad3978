package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/someshjy/mailflow-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "bulk-email-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		bulk := v1.Group("/bulk")
		{
			// POST /api/v1/bulk/jobs - Submit a bulk email job
			bulk.POST("/jobs", jobHandler.SubmitJob)

			// GET /api/v1/bulk/jobs - List jobs with filtering and pagination
			bulk.GET("/jobs", jobHandler.ListJobs)

			// GET /api/v1/bulk/jobs/:job_id - Get job status snapshot
			bulk.GET("/jobs/:job_id", jobHandler.GetJob)

			// POST /api/v1/bulk/jobs/:job_id/cancel - Request job cancellation
			bulk.POST("/jobs/:job_id/cancel", jobHandler.CancelJob)

			// POST /api/v1/bulk/validate-recipients - Check addresses without creating a job
			bulk.POST("/validate-recipients", jobHandler.ValidateRecipients)

			// GET /api/v1/bulk/stats - Aggregate job statistics
			bulk.GET("/stats", jobHandler.GetStats)
		}
	}

	return r
}
