package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/port/inbound"

	"golang.org/x/sync/errgroup"
)

// WorkerServiceConfig holds configuration for the worker service.
type WorkerServiceConfig struct {
	Concurrency int
	QueueGroup  string
	JobTimeout  time.Duration
}

// WorkerService runs a bounded pool of queue consumers. Each consumer
// pulls jobs independently; no global lock serializes them.
type WorkerService struct {
	config    WorkerServiceConfig
	consumers []inbound.MessageConsumer
	running   bool
	startTime time.Time
	mu        sync.RWMutex
}

// NewWorkerService creates a new worker service over the given consumers.
func NewWorkerService(config WorkerServiceConfig, consumers []inbound.MessageConsumer) (*WorkerService, error) {
	if config.Concurrency <= 0 {
		return nil, errors.New("concurrency must be positive")
	}
	if len(consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}

	return &WorkerService{
		config:    config,
		consumers: consumers,
	}, nil
}

// Start starts every consumer. Any consumer failing to start stops the
// ones already started and fails the whole service.
func (w *WorkerService) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("worker service already running")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, consumer := range w.consumers {
		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil {
				return fmt.Errorf("consumer %d failed to start: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.stopAllLocked(ctx)
		return err
	}

	w.running = true
	w.startTime = time.Now()
	slogger.Info(ctx, "Worker service started", slogger.Fields{
		"consumers":   len(w.consumers),
		"concurrency": w.config.Concurrency,
		"queue_group": w.config.QueueGroup,
	})
	return nil
}

// Stop gracefully shuts down every consumer. Idempotent.
func (w *WorkerService) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.stopAllLocked(ctx)
	w.running = false
	slogger.Info(ctx, "Worker service stopped", slogger.Fields{
		"uptime": time.Since(w.startTime).String(),
	})
	return nil
}

func (w *WorkerService) stopAllLocked(ctx context.Context) {
	for i, consumer := range w.consumers {
		if err := consumer.Stop(ctx); err != nil {
			slogger.ErrorWithError(ctx, err, "Failed to stop consumer", slogger.Fields{
				"consumer": i,
			})
		}
	}
}

// IsRunning reports whether the service is currently running.
func (w *WorkerService) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Health aggregates the health of all consumers.
func (w *WorkerService) Health() []inbound.ConsumerHealthStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	statuses := make([]inbound.ConsumerHealthStatus, 0, len(w.consumers))
	for _, consumer := range w.consumers {
		statuses = append(statuses, consumer.Health())
	}
	return statuses
}

// Stats aggregates consumption statistics across all consumers.
func (w *WorkerService) Stats() inbound.ConsumerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var total inbound.ConsumerStats
	total.ActiveSince = w.startTime
	for _, consumer := range w.consumers {
		stats := consumer.Stats()
		total.MessagesReceived += stats.MessagesReceived
		total.MessagesProcessed += stats.MessagesProcessed
		total.MessagesFailed += stats.MessagesFailed
	}
	return total
}
