package outbound

import (
	"context"

	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/valueobject"

	"github.com/google/uuid"
)

// GameImageRepository defines the persistence interface for game images.
type GameImageRepository interface {
	// Save persists a new image.
	Save(ctx context.Context, image *entity.GameImage) error

	// FindByID finds an image by its ID. Returns nil when not found.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.GameImage, error)

	// FindByBatchID lists images belonging to a batch, optionally filtered
	// by processing status (empty status means all).
	FindByBatchID(
		ctx context.Context,
		batchID uuid.UUID,
		status valueobject.ImageProcessingStatus,
	) ([]*entity.GameImage, error)

	// FindByGameID lists images belonging to a game, newest first.
	FindByGameID(ctx context.Context, gameID uuid.UUID, limit, offset int) ([]*entity.GameImage, error)

	// Update persists image mutations.
	Update(ctx context.Context, image *entity.GameImage) error

	// ClaimForProcessing transitions the image to processing iff its stored
	// status is still claimable (uploaded or retrying). This compare-and-set
	// is what enforces single-owner job semantics under at-least-once
	// delivery: the loser of a duplicate delivery gets ErrStaleJob.
	ClaimForProcessing(ctx context.Context, imageID uuid.UUID) (*entity.GameImage, error)
}
