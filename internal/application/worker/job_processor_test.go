package worker

import (
	"context"
	"errors"
	"testing"

	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/messaging"
	"ruleindex/internal/domain/valueobject"
	"ruleindex/internal/port/outbound"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubImageRepo struct {
	image     *entity.GameImage
	claimErr  error
	updateErr error
	updates   int
}

func (s *stubImageRepo) Save(_ context.Context, _ *entity.GameImage) error { return nil }

func (s *stubImageRepo) FindByID(_ context.Context, _ uuid.UUID) (*entity.GameImage, error) {
	return s.image, nil
}

func (s *stubImageRepo) FindByBatchID(
	_ context.Context,
	_ uuid.UUID,
	_ valueobject.ImageProcessingStatus,
) ([]*entity.GameImage, error) {
	return nil, nil
}

func (s *stubImageRepo) FindByGameID(_ context.Context, _ uuid.UUID, _, _ int) ([]*entity.GameImage, error) {
	return nil, nil
}

// Update fails once when updateErr is set, then persists normally.
func (s *stubImageRepo) Update(_ context.Context, image *entity.GameImage) error {
	s.updates++
	if s.updateErr != nil {
		err := s.updateErr
		s.updateErr = nil
		return err
	}
	s.image = image
	return nil
}

func (s *stubImageRepo) ClaimForProcessing(_ context.Context, _ uuid.UUID) (*entity.GameImage, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if err := s.image.StartProcessing(); err != nil {
		return nil, err
	}
	return s.image, nil
}

type stubVectorRepo struct {
	saved   []*entity.GameVector
	saveErr error
}

// Save replaces any previous vector for the same image, matching the
// repository's per-image upsert.
func (s *stubVectorRepo) Save(_ context.Context, vector *entity.GameVector) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	for i, existing := range s.saved {
		if existing.ImageID() == vector.ImageID() {
			s.saved[i] = vector
			return nil
		}
	}
	s.saved = append(s.saved, vector)
	return nil
}

func (s *stubVectorRepo) FindByID(_ context.Context, _ uuid.UUID) (*entity.GameVector, error) {
	return nil, nil
}

func (s *stubVectorRepo) FindByImageID(_ context.Context, _ uuid.UUID) ([]*entity.GameVector, error) {
	return nil, nil
}

func (s *stubVectorRepo) DeleteByImageID(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

func (s *stubVectorRepo) SearchSimilar(
	_ context.Context,
	_ uuid.UUID,
	_ []float64,
	_ valueobject.SearchMethod,
	_ int,
	_ float64,
) ([]outbound.VectorSimilarityResult, error) {
	return nil, nil
}

type stubBlobStorage struct {
	data        []byte
	downloadErr error
}

func (s *stubBlobStorage) Download(_ context.Context, _ string) ([]byte, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	return s.data, nil
}

func (s *stubBlobStorage) Upload(_ context.Context, _ []byte, _, _ string) (*outbound.BlobUploadResult, error) {
	return nil, nil
}

func (s *stubBlobStorage) Delete(_ context.Context, _ string) error { return nil }

type stubAIService struct {
	result *outbound.ImageAnalysisResult
	err    error
}

func (s *stubAIService) ProcessImage(_ context.Context, _ []byte, _ string) (*outbound.ImageAnalysisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubPublisher struct {
	published []messaging.ProcessingJobMessage
}

func (s *stubPublisher) PublishProcessingJob(_ context.Context, job messaging.ProcessingJobMessage) error {
	s.published = append(s.published, job)
	return nil
}

func (s *stubPublisher) Close() error { return nil }

type stubBatchRecorder struct {
	outcomes []bool
}

func (s *stubBatchRecorder) RecordImageOutcome(
	_ context.Context,
	_ uuid.UUID,
	succeeded bool,
) (*entity.ImageBatch, error) {
	s.outcomes = append(s.outcomes, succeeded)
	batch, _ := entity.NewImageBatch(uuid.New(), 1, 0)
	return batch, nil
}

type processorFixture struct {
	imageRepo *stubImageRepo
	vectors   *stubVectorRepo
	blob      *stubBlobStorage
	ai        *stubAIService
	publisher *stubPublisher
	recorder  *stubBatchRecorder
	job       messaging.ProcessingJobMessage
}

func embedding() []float64 {
	vector := make([]float64, entity.EmbeddingDimensions)
	vector[0] = 1.0
	return vector
}

func successResult() *outbound.ImageAnalysisResult {
	return &outbound.ImageAnalysisResult{
		ExtractedText:        "Roll two dice to begin.",
		TextEmbedding:        embedding(),
		VisualDescription:    "A rules page with dice icons.",
		DescriptionEmbedding: embedding(),
		Labels:               []string{"dice", "setup"},
		LabelsEmbedding:      embedding(),
		Success:              true,
	}
}

func newFixture(t *testing.T) *processorFixture {
	t.Helper()
	gameID := uuid.New()
	batchID := uuid.New()
	image := entity.NewGameImage(gameID, &batchID, "images/2026/08/30/page1.png", "page1.png", 2048)

	return &processorFixture{
		imageRepo: &stubImageRepo{image: image},
		vectors:   &stubVectorRepo{},
		blob:      &stubBlobStorage{data: []byte("png bytes")},
		ai:        &stubAIService{result: successResult()},
		publisher: &stubPublisher{},
		recorder:  &stubBatchRecorder{},
		job: messaging.NewProcessingJobMessage(
			image.ID(), gameID, &batchID, image.BlobPath(), image.OriginalFilename(), 3,
		),
	}
}

func (f *processorFixture) processor() *ImageJobProcessor {
	p := NewImageJobProcessor(
		JobProcessorConfig{},
		f.imageRepo,
		f.vectors,
		f.blob,
		f.ai,
		f.publisher,
		f.recorder,
		nil,
	)
	return p.(*ImageJobProcessor)
}

func TestImageJobProcessor_Success(t *testing.T) {
	f := newFixture(t)

	err := f.processor().ProcessJob(context.Background(), f.job)
	require.NoError(t, err)

	require.Len(t, f.vectors.saved, 1)
	vector := f.vectors.saved[0]
	assert.Equal(t, f.job.GameID, vector.GameID())
	assert.Equal(t, f.job.ImageID, vector.ImageID())
	assert.NotNil(t, vector.OCR())
	assert.NotNil(t, vector.Description())
	assert.NotNil(t, vector.Labels())

	assert.Equal(t, valueobject.ImageStatusCompleted, f.imageRepo.image.ProcessingStatus())
	assert.Equal(t, []bool{true}, f.recorder.outcomes)
	assert.Empty(t, f.publisher.published)
}

func TestImageJobProcessor_FailureWithBudgetSchedulesRetry(t *testing.T) {
	f := newFixture(t)
	f.ai = &stubAIService{err: errors.New("vision backend unavailable")}

	err := f.processor().ProcessJob(context.Background(), f.job)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ImageStatusRetrying, f.imageRepo.image.ProcessingStatus())
	require.Len(t, f.publisher.published, 1)
	retry := f.publisher.published[0]
	assert.Equal(t, f.job.ImageID, retry.ImageID)
	assert.Equal(t, 1, retry.RetryCount)
	assert.Equal(t, f.job.MaxRetries, retry.MaxRetries)
	assert.Equal(t, f.job.MessageID, retry.MessageID)

	assert.Empty(t, f.recorder.outcomes)
	assert.Empty(t, f.vectors.saved)
}

func TestImageJobProcessor_BudgetExhaustedFailsPermanently(t *testing.T) {
	f := newFixture(t)
	f.ai = &stubAIService{err: errors.New("vision backend unavailable")}

	// Final attempt: three retries already consumed.
	job := f.job
	for range 3 {
		job = job.WithRetry()
	}
	require.False(t, job.HasRetryBudget())

	err := f.processor().ProcessJob(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ImageStatusFailed, f.imageRepo.image.ProcessingStatus())
	assert.Equal(t, []bool{false}, f.recorder.outcomes)
	assert.Empty(t, f.publisher.published)
}

func TestImageJobProcessor_BackendReportedFailure(t *testing.T) {
	f := newFixture(t)
	f.ai = &stubAIService{result: &outbound.ImageAnalysisResult{
		Success:      false,
		ErrorMessage: "no readable content",
	}}

	err := f.processor().ProcessJob(context.Background(), f.job)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ImageStatusRetrying, f.imageRepo.image.ProcessingStatus())
	require.NotNil(t, f.imageRepo.image.ProcessingError())
	assert.Contains(t, *f.imageRepo.image.ProcessingError(), "no readable content")
}

func TestImageJobProcessor_DownloadFailureCountsAsAttempt(t *testing.T) {
	f := newFixture(t)
	f.blob = &stubBlobStorage{downloadErr: errors.New("blob not reachable")}

	err := f.processor().ProcessJob(context.Background(), f.job)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ImageStatusRetrying, f.imageRepo.image.ProcessingStatus())
	require.Len(t, f.publisher.published, 1)
}

func TestImageJobProcessor_CompletionUpdateFailureSchedulesRetry(t *testing.T) {
	f := newFixture(t)
	f.imageRepo.updateErr = errors.New("connection reset")

	err := f.processor().ProcessJob(context.Background(), f.job)
	require.NoError(t, err)

	// The vector row saved, but the attempt still counts as failed: the
	// image must return to the queue, not stay stuck in processing.
	require.Len(t, f.vectors.saved, 1)
	assert.Equal(t, valueobject.ImageStatusRetrying, f.imageRepo.image.ProcessingStatus())
	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, 1, f.publisher.published[0].RetryCount)
	assert.Empty(t, f.recorder.outcomes)
}

func TestImageJobProcessor_CompletionUpdateFailureWithoutBudget(t *testing.T) {
	f := newFixture(t)
	f.imageRepo.updateErr = errors.New("connection reset")

	job := f.job
	for range 3 {
		job = job.WithRetry()
	}

	err := f.processor().ProcessJob(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ImageStatusFailed, f.imageRepo.image.ProcessingStatus())
	assert.Equal(t, []bool{false}, f.recorder.outcomes)
	assert.Empty(t, f.publisher.published)
}

func TestImageJobProcessor_RetryAfterPartialFailureKeepsOneVector(t *testing.T) {
	f := newFixture(t)
	f.imageRepo.updateErr = errors.New("connection reset")
	processor := f.processor()

	require.NoError(t, processor.ProcessJob(context.Background(), f.job))
	require.Len(t, f.publisher.published, 1)
	retry := f.publisher.published[0]

	require.NoError(t, processor.ProcessJob(context.Background(), retry))

	require.Len(t, f.vectors.saved, 1)
	assert.Equal(t, valueobject.ImageStatusCompleted, f.imageRepo.image.ProcessingStatus())
	assert.Equal(t, []bool{true}, f.recorder.outcomes)
}

func TestImageJobProcessor_PersistenceFailureEntersRetryFlow(t *testing.T) {
	f := newFixture(t)
	f.vectors = &stubVectorRepo{saveErr: errors.New("connection reset")}

	err := f.processor().ProcessJob(context.Background(), f.job)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ImageStatusRetrying, f.imageRepo.image.ProcessingStatus())
	require.Len(t, f.publisher.published, 1)
	assert.Empty(t, f.recorder.outcomes)
}

func TestImageJobProcessor_ConsistencyErrorsPropagate(t *testing.T) {
	testCases := []struct {
		name     string
		claimErr error
	}{
		{"stale job", domainerrors.ErrStaleJob},
		{"missing image", domainerrors.ErrImageNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.imageRepo.claimErr = tc.claimErr

			err := f.processor().ProcessJob(context.Background(), f.job)
			assert.ErrorIs(t, err, tc.claimErr)
			assert.Empty(t, f.vectors.saved)
			assert.Empty(t, f.recorder.outcomes)
		})
	}
}

func TestImageJobProcessor_InvalidMessageRejected(t *testing.T) {
	f := newFixture(t)
	job := f.job
	job.BlobPath = ""

	err := f.processor().ProcessJob(context.Background(), job)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestBuildVector_LabelsEncodedAsJSON(t *testing.T) {
	f := newFixture(t)

	vector, err := buildVector(f.job, successResult())
	require.NoError(t, err)

	require.NotNil(t, vector.Labels())
	assert.JSONEq(t, `["dice","setup"]`, vector.Labels().Content)
}

func TestBuildVector_MissingChannelsOmitted(t *testing.T) {
	f := newFixture(t)
	result := &outbound.ImageAnalysisResult{
		ExtractedText: "Roll two dice.",
		TextEmbedding: embedding(),
		Success:       true,
	}

	vector, err := buildVector(f.job, result)
	require.NoError(t, err)

	assert.NotNil(t, vector.OCR())
	assert.Nil(t, vector.Description())
	assert.Nil(t, vector.Labels())
}
