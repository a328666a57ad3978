package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/someshjy/mailflow-be/internal/dispatch/domain"
	"github.com/someshjy/mailflow-be/shared/rabbitmq"
)

// Config holds dispatch worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Engine        *Engine
	Concurrency   int
	PrefetchCount int
	QueueName     string
}

// Worker consumes dispatch requests from RabbitMQ and feeds them to a pool
// of goroutines, each driving one job at a time through the Engine. Distinct
// jobs run concurrently; the recipients of a single job never do.
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	engine        *Engine
	concurrency   int
	prefetchCount int
	queueName     string
	workerID      string
	jobsChan      chan *domain.JobMessage
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewWorker creates a new dispatch worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		engine:        cfg.Engine,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		queueName:     cfg.QueueName,
		workerID:      fmt.Sprintf("dispatch-%s", uuid.New().String()[:8]),
		jobsChan:      make(chan *domain.JobMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and processing dispatch requests. Blocks until the
// context is canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting dispatch worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker pool
func (w *Worker) Stop() {
	w.logger.Info("Stopping dispatch worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Dispatch worker stopped")
}
