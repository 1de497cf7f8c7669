package inbound

import (
	"context"
	"time"

	"ruleindex/internal/domain/messaging"
)

// JobProcessor defines the interface for processing dequeued image jobs.
type JobProcessor interface {
	// ProcessJob performs AI extraction for one image and applies the
	// resulting state transitions. The error return is for consistency
	// failures only; processing failures are absorbed into the retry flow.
	ProcessJob(ctx context.Context, job messaging.ProcessingJobMessage) error
}

// ConsumerStats tracks message consumption statistics.
type ConsumerStats struct {
	MessagesReceived  int64
	MessagesProcessed int64
	MessagesFailed    int64
	ActiveSince       time.Time
}

// ConsumerHealthStatus describes the consumer's connection health.
type ConsumerHealthStatus struct {
	Subject     string
	QueueGroup  string
	IsRunning   bool
	IsConnected bool
	LastError   string
}

// MessageConsumer defines the lifecycle interface for the queue consumer.
type MessageConsumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() ConsumerHealthStatus
	Stats() ConsumerStats
}
