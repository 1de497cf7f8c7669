package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/application/dto"
	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/valueobject"
	"ruleindex/internal/port/outbound"

	domainerrors "ruleindex/internal/domain/errors/domain"
)

// VectorSearchService answers similarity queries over a game's extracted
// content. The channel used for ranking and the channel(s) returned as
// content are independently selectable.
type VectorSearchService struct {
	vectorRepo       outbound.GameVectorRepository
	embeddingService outbound.EmbeddingService
}

// NewVectorSearchService creates a new VectorSearchService.
func NewVectorSearchService(
	vectorRepo outbound.GameVectorRepository,
	embeddingService outbound.EmbeddingService,
) *VectorSearchService {
	if vectorRepo == nil {
		panic("vectorRepo cannot be nil")
	}
	if embeddingService == nil {
		panic("embeddingService cannot be nil")
	}

	return &VectorSearchService{
		vectorRepo:       vectorRepo,
		embeddingService: embeddingService,
	}
}

// Search ranks the game's stored vectors against the query text.
func (s *VectorSearchService) Search(
	ctx context.Context,
	request dto.SearchRequestDTO,
) (*dto.SearchResponseDTO, error) {
	startTime := time.Now()

	request.ApplyDefaults()
	if err := request.Validate(); err != nil {
		return nil, err
	}

	method, err := valueobject.NewSearchMethod(request.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrInvalidSearchRequest, err)
	}

	queryEmbedding, err := s.generateQueryEmbedding(ctx, request.Query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.vectorRepo.SearchSimilar(
		ctx,
		request.GameID,
		queryEmbedding,
		method,
		request.TopK,
		*request.SimilarityThreshold,
	)
	if err != nil {
		return nil, fmt.Errorf("vector similarity search failed: %w", err)
	}

	results := s.buildResults(candidates, method, request.ContentFields)
	sortResults(results)
	if len(results) > request.TopK {
		results = results[:request.TopK]
	}

	slogger.Info(ctx, "Vector search completed", slogger.Fields{
		"game_id":       request.GameID.String(),
		"method":        method.String(),
		"total_matches": len(results),
		"duration_ms":   time.Since(startTime).Milliseconds(),
	})

	return &dto.SearchResponseDTO{
		Results:       results,
		TotalMatches:  len(results),
		Method:        method.String(),
		ExecutionTime: time.Since(startTime),
	}, nil
}

// generateQueryEmbedding generates an embedding for the search query.
func (s *VectorSearchService) generateQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	result, err := s.embeddingService.GenerateEmbedding(ctx, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to generate embedding for query: %w", err)
	}
	if len(result.Vector) != entity.EmbeddingDimensions {
		return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d",
			len(result.Vector), entity.EmbeddingDimensions)
	}
	return result.Vector, nil
}

// buildResults attaches the caller-requested content fields to each ranked
// candidate. When no fields are requested, the ranking method's own content
// is returned. Unrecognized field names are skipped silently.
func (s *VectorSearchService) buildResults(
	candidates []outbound.VectorSimilarityResult,
	method valueobject.SearchMethod,
	contentFields []string,
) []dto.SearchResultDTO {
	if len(contentFields) == 0 {
		contentFields = []string{method.String()}
	}

	results := make([]dto.SearchResultDTO, 0, len(candidates))
	for _, candidate := range candidates {
		content := make(map[string]string)
		for _, field := range contentFields {
			fieldMethod, ok := valueobject.ContentColumnForField(field)
			if !ok {
				continue
			}
			if text := candidateContent(candidate, fieldMethod); text != nil {
				content[fieldMethod.String()] = *text
			}
		}

		results = append(results, dto.SearchResultDTO{
			VectorID:        candidate.VectorID,
			GameID:          candidate.GameID,
			ImageID:         candidate.ImageID,
			SimilarityScore: candidate.SimilarityScore,
			Content:         content,
			PageNumber:      candidate.PageNumber,
			CreatedAt:       candidate.CreatedAt,
		})
	}
	return results
}

// candidateContent selects the candidate's content for one channel.
func candidateContent(
	candidate outbound.VectorSimilarityResult,
	method valueobject.SearchMethod,
) *string {
	switch method {
	case valueobject.SearchMethodOCR:
		return candidate.OCRContent
	case valueobject.SearchMethodDescription:
		return candidate.DescriptionContent
	case valueobject.SearchMethodLabels:
		return candidate.LabelsContent
	default:
		return nil
	}
}

// sortResults orders by score descending, breaking ties by earliest created_at.
func sortResults(results []dto.SearchResultDTO) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
}

// CosineSimilarity computes the cosine similarity between two equal-length
// vectors, mapped from [-1, 1] into [0, 1] so it can be compared against a
// similarity threshold. Zero vectors score 0.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	scaled := (similarity + 1.0) / 2.0
	return math.Max(0.0, math.Min(1.0, scaled)), nil
}
