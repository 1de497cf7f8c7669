package outbound

import (
	"context"

	"ruleindex/internal/domain/messaging"
)

// JobPublisher defines the interface for enqueueing processing jobs onto
// the durable queue transport.
type JobPublisher interface {
	// PublishProcessingJob enqueues one image processing job.
	PublishProcessingJob(ctx context.Context, job messaging.ProcessingJobMessage) error
}
