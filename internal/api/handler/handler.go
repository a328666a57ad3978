package handler

import (
	"log/slog"
	"time"

	"github.com/someshjy/mailflow-be/internal/api/storage"
	"github.com/someshjy/mailflow-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger            *slog.Logger
	Storage           *storage.Storage
	RabbitClient      *rabbitmq.Client
	DefaultBatchSize  int
	DefaultBatchDelay time.Duration
}

// JobHandler handles bulk email job HTTP requests
type JobHandler struct {
	logger            *slog.Logger
	storage           *storage.Storage
	rabbitClient      *rabbitmq.Client
	defaultBatchSize  int
	defaultBatchDelay time.Duration
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:            deps.Logger,
		storage:           deps.Storage,
		rabbitClient:      deps.RabbitClient,
		defaultBatchSize:  deps.DefaultBatchSize,
		defaultBatchDelay: deps.DefaultBatchDelay,
	}
}
