package outbound

import "context"

// EmbeddingResult holds a generated embedding vector and its model metadata.
type EmbeddingResult struct {
	Vector     []float64
	Dimensions int
	Model      string
	TokenCount int
}

// EmbeddingService defines the interface for generating text embeddings
// used in similarity search.
type EmbeddingService interface {
	// GenerateEmbedding generates a fixed-dimension embedding for text.
	GenerateEmbedding(ctx context.Context, text string) (*EmbeddingResult, error)
}
