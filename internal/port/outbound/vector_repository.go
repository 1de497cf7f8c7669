package outbound

import (
	"context"
	"time"

	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/valueobject"

	"github.com/google/uuid"
)

// VectorSimilarityResult is one ranked candidate from a similarity query.
// Embeddings are not carried back; only content and the computed score.
type VectorSimilarityResult struct {
	VectorID           uuid.UUID
	GameID             uuid.UUID
	ImageID            uuid.UUID
	OCRContent         *string
	DescriptionContent *string
	LabelsContent      *string
	PageNumber         *int
	SimilarityScore    float64
	CreatedAt          time.Time
}

// GameVectorRepository defines the persistence interface for extracted vectors.
type GameVectorRepository interface {
	// Save persists the vector extracted from one image. Saving again for
	// the same image replaces the previous extraction.
	Save(ctx context.Context, vector *entity.GameVector) error

	// FindByID finds a vector by its ID. Returns nil when not found.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.GameVector, error)

	// FindByImageID lists the vectors extracted from one image.
	FindByImageID(ctx context.Context, imageID uuid.UUID) ([]*entity.GameVector, error)

	// DeleteByImageID removes all vectors owned by an image. Returns the
	// number of rows removed.
	DeleteByImageID(ctx context.Context, imageID uuid.UUID) (int, error)

	// SearchSimilar ranks the game's vectors by cosine similarity between
	// the query embedding and the method's embedding column. Candidates
	// whose method channel is absent are excluded, scores below the
	// threshold are filtered, and results come back ordered by score
	// descending with created_at ascending as the tie-break.
	SearchSimilar(
		ctx context.Context,
		gameID uuid.UUID,
		queryEmbedding []float64,
		method valueobject.SearchMethod,
		limit int,
		similarityThreshold float64,
	) ([]VectorSimilarityResult, error)
}
