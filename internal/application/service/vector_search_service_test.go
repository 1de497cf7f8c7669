package service

import (
	"context"
	"testing"
	"time"

	"ruleindex/internal/application/dto"
	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/valueobject"
	"ruleindex/internal/port/outbound"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVectorRepo struct {
	results    []outbound.VectorSimilarityResult
	lastMethod valueobject.SearchMethod
	lastLimit  int
	lastThresh float64
}

func (f *fakeVectorRepo) Save(_ context.Context, _ *entity.GameVector) error { return nil }

func (f *fakeVectorRepo) FindByID(_ context.Context, _ uuid.UUID) (*entity.GameVector, error) {
	return nil, nil
}

func (f *fakeVectorRepo) FindByImageID(_ context.Context, _ uuid.UUID) ([]*entity.GameVector, error) {
	return nil, nil
}

func (f *fakeVectorRepo) DeleteByImageID(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeVectorRepo) SearchSimilar(
	_ context.Context,
	_ uuid.UUID,
	_ []float64,
	method valueobject.SearchMethod,
	limit int,
	threshold float64,
) ([]outbound.VectorSimilarityResult, error) {
	f.lastMethod = method
	f.lastLimit = limit
	f.lastThresh = threshold

	filtered := make([]outbound.VectorSimilarityResult, 0, len(f.results))
	for _, r := range f.results {
		if r.SimilarityScore >= threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

type fakeEmbeddingService struct {
	dimensions int
}

func (f *fakeEmbeddingService) GenerateEmbedding(_ context.Context, _ string) (*outbound.EmbeddingResult, error) {
	dims := f.dimensions
	if dims == 0 {
		dims = entity.EmbeddingDimensions
	}
	return &outbound.EmbeddingResult{
		Vector:     make([]float64, dims),
		Dimensions: dims,
		Model:      "test-embedding",
	}, nil
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }

func similarityResult(score float64, createdAt time.Time) outbound.VectorSimilarityResult {
	return outbound.VectorSimilarityResult{
		VectorID:           uuid.New(),
		GameID:             uuid.New(),
		ImageID:            uuid.New(),
		OCRContent:         strPtr("ocr text"),
		DescriptionContent: strPtr("description text"),
		SimilarityScore:    score,
		CreatedAt:          createdAt,
	}
}

func TestVectorSearchService_ThresholdFiltering(t *testing.T) {
	now := time.Now()
	repo := &fakeVectorRepo{
		results: []outbound.VectorSimilarityResult{
			similarityResult(0.95, now),
			similarityResult(0.92, now),
			similarityResult(0.80, now),
		},
	}
	svc := NewVectorSearchService(repo, &fakeEmbeddingService{})

	response, err := svc.Search(context.Background(), dto.SearchRequestDTO{
		GameID:              uuid.New(),
		Query:               "how many dice",
		Method:              "ocr",
		SimilarityThreshold: floatPtr(0.9),
		TopK:                10,
	})
	require.NoError(t, err)

	require.Len(t, response.Results, 2)
	assert.InDelta(t, 0.95, response.Results[0].SimilarityScore, 0.001)
	assert.InDelta(t, 0.92, response.Results[1].SimilarityScore, 0.001)
	assert.Equal(t, "ocr", response.Method)
}

func TestVectorSearchService_DefaultsApplied(t *testing.T) {
	repo := &fakeVectorRepo{}
	svc := NewVectorSearchService(repo, &fakeEmbeddingService{})

	_, err := svc.Search(context.Background(), dto.SearchRequestDTO{
		GameID: uuid.New(),
		Query:  "setup",
	})
	require.NoError(t, err)

	assert.Equal(t, valueobject.SearchMethodOCR, repo.lastMethod)
	assert.Equal(t, dto.DefaultTopK, repo.lastLimit)
	assert.InDelta(t, dto.DefaultSimilarityThreshold, repo.lastThresh, 0.001)
}

func TestVectorSearchService_ExplicitZeroThresholdHonored(t *testing.T) {
	now := time.Now()
	repo := &fakeVectorRepo{
		results: []outbound.VectorSimilarityResult{similarityResult(0.1, now)},
	}
	svc := NewVectorSearchService(repo, &fakeEmbeddingService{})

	response, err := svc.Search(context.Background(), dto.SearchRequestDTO{
		GameID:              uuid.New(),
		Query:               "dice",
		SimilarityThreshold: floatPtr(0.0),
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, repo.lastThresh, 0.0001)
	require.Len(t, response.Results, 1)
}

func TestVectorSearchService_ContentFields(t *testing.T) {
	now := time.Now()
	repo := &fakeVectorRepo{
		results: []outbound.VectorSimilarityResult{similarityResult(0.9, now)},
	}
	svc := NewVectorSearchService(repo, &fakeEmbeddingService{})

	t.Run("defaults to method content", func(t *testing.T) {
		response, err := svc.Search(context.Background(), dto.SearchRequestDTO{
			GameID: uuid.New(),
			Query:  "dice",
			Method: "ocr",
		})
		require.NoError(t, err)
		require.Len(t, response.Results, 1)
		assert.Equal(t, map[string]string{"ocr": "ocr text"}, response.Results[0].Content)
	})

	t.Run("ranking and content decoupled", func(t *testing.T) {
		response, err := svc.Search(context.Background(), dto.SearchRequestDTO{
			GameID:        uuid.New(),
			Query:         "dice",
			Method:        "ocr",
			ContentFields: []string{"description"},
		})
		require.NoError(t, err)
		require.Len(t, response.Results, 1)
		assert.Equal(t, map[string]string{"description": "description text"}, response.Results[0].Content)
	})

	t.Run("unknown fields skipped silently", func(t *testing.T) {
		response, err := svc.Search(context.Background(), dto.SearchRequestDTO{
			GameID:        uuid.New(),
			Query:         "dice",
			Method:        "ocr",
			ContentFields: []string{"summary", "ocr"},
		})
		require.NoError(t, err)
		require.Len(t, response.Results, 1)
		assert.Equal(t, map[string]string{"ocr": "ocr text"}, response.Results[0].Content)
	})

	t.Run("absent channel omitted from content", func(t *testing.T) {
		response, err := svc.Search(context.Background(), dto.SearchRequestDTO{
			GameID:        uuid.New(),
			Query:         "dice",
			Method:        "ocr",
			ContentFields: []string{"labels"},
		})
		require.NoError(t, err)
		require.Len(t, response.Results, 1)
		assert.Empty(t, response.Results[0].Content)
	})
}

func TestVectorSearchService_TieBreakByCreatedAt(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	first := similarityResult(0.9, newer)
	second := similarityResult(0.9, older)
	repo := &fakeVectorRepo{results: []outbound.VectorSimilarityResult{first, second}}
	svc := NewVectorSearchService(repo, &fakeEmbeddingService{})

	response, err := svc.Search(context.Background(), dto.SearchRequestDTO{
		GameID: uuid.New(),
		Query:  "dice",
	})
	require.NoError(t, err)

	require.Len(t, response.Results, 2)
	assert.Equal(t, second.VectorID, response.Results[0].VectorID)
	assert.Equal(t, first.VectorID, response.Results[1].VectorID)
}

func TestVectorSearchService_InvalidRequests(t *testing.T) {
	svc := NewVectorSearchService(&fakeVectorRepo{}, &fakeEmbeddingService{})

	testCases := []struct {
		name    string
		request dto.SearchRequestDTO
	}{
		{"missing game id", dto.SearchRequestDTO{Query: "dice"}},
		{"empty query", dto.SearchRequestDTO{GameID: uuid.New(), Query: "   "}},
		{"top k too large", dto.SearchRequestDTO{GameID: uuid.New(), Query: "dice", TopK: 101}},
		{"threshold out of range", dto.SearchRequestDTO{GameID: uuid.New(), Query: "dice", SimilarityThreshold: floatPtr(1.5)}},
		{"unsupported method", dto.SearchRequestDTO{GameID: uuid.New(), Query: "dice", Method: "hybrid"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tc.request)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidSearchRequest)
		})
	}
}

func TestVectorSearchService_BadEmbeddingDimensions(t *testing.T) {
	svc := NewVectorSearchService(&fakeVectorRepo{}, &fakeEmbeddingService{dimensions: 768})

	_, err := svc.Search(context.Background(), dto.SearchRequestDTO{
		GameID: uuid.New(),
		Query:  "dice",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestCosineSimilarity(t *testing.T) {
	testCases := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{"identical", []float64{1, 0, 0}, []float64{1, 0, 0}, 1.0},
		{"opposite", []float64{1, 0, 0}, []float64{-1, 0, 0}, 0.0},
		{"orthogonal", []float64{1, 0, 0}, []float64{0, 1, 0}, 0.5},
		{"zero vector", []float64{0, 0, 0}, []float64{1, 2, 3}, 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, err := CosineSimilarity(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, score, 0.0001)
		})
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3})
	assert.Error(t, err)
}
