package outbound

import (
	"context"

	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/valueobject"

	"github.com/google/uuid"
)

// ImageBatchRepository defines the persistence interface for image batches.
type ImageBatchRepository interface {
	// Save persists a new batch.
	Save(ctx context.Context, batch *entity.ImageBatch) error

	// FindByID finds a batch by its ID. Returns nil when not found.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ImageBatch, error)

	// FindByStatus lists batches currently in the given status, oldest first.
	FindByStatus(ctx context.Context, status valueobject.BatchStatus, limit int) ([]*entity.ImageBatch, error)

	// Update persists batch mutations other than outcome counters.
	Update(ctx context.Context, batch *entity.ImageBatch) error

	// RecordOutcome atomically applies one image outcome to the batch's
	// counters and recomputes its status under a per-batch mutual-exclusion
	// discipline, so concurrent completions never lose an increment. The
	// updated batch is returned.
	RecordOutcome(ctx context.Context, batchID uuid.UUID, succeeded bool) (*entity.ImageBatch, error)
}
