// Package dto defines the request and response shapes exchanged with the
// application services.
package dto

import (
	"fmt"
	"strings"
	"time"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
)

// Search defaults and limits.
const (
	DefaultTopK                = 5
	MaxTopK                    = 100
	DefaultSimilarityThreshold = 0.7
)

// SearchRequestDTO is a similarity search over one game's extracted content.
// Method picks the channel used for ranking; ContentFields independently
// picks the channel(s) returned as content, defaulting to the method's own.
type SearchRequestDTO struct {
	GameID uuid.UUID `json:"game_id"`
	Query  string    `json:"query"`
	TopK   int       `json:"top_k"`

	// SimilarityThreshold is a pointer so an explicit 0.0 is
	// distinguishable from an absent value.
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	Method              string   `json:"method"`
	ContentFields       []string `json:"content_fields,omitempty"`
}

// ApplyDefaults fills unset request fields with their defaults.
func (r *SearchRequestDTO) ApplyDefaults() {
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
	if r.SimilarityThreshold == nil {
		threshold := DefaultSimilarityThreshold
		r.SimilarityThreshold = &threshold
	}
	if r.Method == "" {
		r.Method = "ocr"
	}
}

// Validate rejects structurally invalid search requests.
func (r *SearchRequestDTO) Validate() error {
	if r.GameID == uuid.Nil {
		return fmt.Errorf("%w: game_id is required", domainerrors.ErrInvalidSearchRequest)
	}
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: %w", domainerrors.ErrInvalidSearchRequest, domainerrors.ErrEmptyQuery)
	}
	if r.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", domainerrors.ErrInvalidSearchRequest)
	}
	if r.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k exceeds maximum of %d", domainerrors.ErrInvalidSearchRequest, MaxTopK)
	}
	if r.SimilarityThreshold != nil && (*r.SimilarityThreshold < 0.0 || *r.SimilarityThreshold > 1.0) {
		return fmt.Errorf("%w: similarity_threshold must be within [0.0, 1.0]", domainerrors.ErrInvalidSearchRequest)
	}
	return nil
}

// SearchResultDTO is one ranked search hit. Content holds the requested
// content fields keyed by channel name.
type SearchResultDTO struct {
	VectorID        uuid.UUID         `json:"vector_id"`
	GameID          uuid.UUID         `json:"game_id"`
	ImageID         uuid.UUID         `json:"image_id"`
	SimilarityScore float64           `json:"similarity_score"`
	Content         map[string]string `json:"content"`
	PageNumber      *int              `json:"page_number,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// SearchResponseDTO is the ordered result list for one search request.
type SearchResponseDTO struct {
	Results       []SearchResultDTO `json:"results"`
	TotalMatches  int               `json:"total_matches"`
	Method        string            `json:"method"`
	ExecutionTime time.Duration     `json:"execution_time"`
}
