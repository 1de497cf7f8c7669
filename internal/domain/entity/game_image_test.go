package entity

import (
	"testing"

	"ruleindex/internal/domain/valueobject"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImage(t *testing.T) *GameImage {
	t.Helper()
	batchID := uuid.New()
	return NewGameImage(uuid.New(), &batchID, "images/2026/01/01/test.jpg", "page-1.jpg", 2048)
}

func TestNewGameImage(t *testing.T) {
	image := newTestImage(t)

	assert.Equal(t, valueobject.ImageStatusUploaded, image.ProcessingStatus())
	assert.Equal(t, 0, image.RetryCount())
	assert.Nil(t, image.ProcessingError())
	assert.NotNil(t, image.BatchID())
}

func TestGameImage_StartProcessing(t *testing.T) {
	image := newTestImage(t)

	require.NoError(t, image.StartProcessing())
	assert.Equal(t, valueobject.ImageStatusProcessing, image.ProcessingStatus())
	assert.NotNil(t, image.ProcessingStartedAt())
}

func TestGameImage_StartProcessing_StaleForOwnedImage(t *testing.T) {
	image := newTestImage(t)
	require.NoError(t, image.StartProcessing())

	// Second claim of an already-owned image.
	assert.ErrorIs(t, image.StartProcessing(), domainerrors.ErrStaleJob)
}

func TestGameImage_StartProcessing_StaleForSettledImage(t *testing.T) {
	image := newTestImage(t)
	require.NoError(t, image.StartProcessing())
	require.NoError(t, image.CompleteProcessing())

	assert.ErrorIs(t, image.StartProcessing(), domainerrors.ErrStaleJob)
}

func TestGameImage_CompleteProcessing(t *testing.T) {
	image := newTestImage(t)
	require.NoError(t, image.StartProcessing())

	require.NoError(t, image.CompleteProcessing())
	assert.Equal(t, valueobject.ImageStatusCompleted, image.ProcessingStatus())
	assert.NotNil(t, image.ProcessingCompletedAt())
	assert.Nil(t, image.ProcessingError())
}

func TestGameImage_RetryFlow(t *testing.T) {
	image := newTestImage(t)
	require.NoError(t, image.StartProcessing())

	require.NoError(t, image.ScheduleRetry(1, "AI backend timeout"))
	assert.Equal(t, valueobject.ImageStatusRetrying, image.ProcessingStatus())
	assert.Equal(t, 1, image.RetryCount())
	require.NotNil(t, image.ProcessingError())
	assert.Equal(t, "AI backend timeout", *image.ProcessingError())

	// The retrying image is claimable again on redelivery.
	require.NoError(t, image.StartProcessing())
	require.NoError(t, image.FailProcessing(1, "AI backend timeout"))
	assert.Equal(t, valueobject.ImageStatusFailed, image.ProcessingStatus())
}

func TestGameImage_ScheduleRetry_InvalidFromUploaded(t *testing.T) {
	image := newTestImage(t)

	err := image.ScheduleRetry(1, "boom")
	require.Error(t, err)
}

func TestGameImage_ResetForRetry(t *testing.T) {
	image := newTestImage(t)
	require.NoError(t, image.StartProcessing())
	require.NoError(t, image.FailProcessing(3, "exhausted"))

	require.NoError(t, image.ResetForRetry())
	assert.Equal(t, valueobject.ImageStatusUploaded, image.ProcessingStatus())
	assert.Equal(t, 0, image.RetryCount())
	assert.Nil(t, image.ProcessingError())
	assert.Nil(t, image.ProcessingStartedAt())
}

func TestGameImage_ResetForRetry_OnlyFromFailed(t *testing.T) {
	image := newTestImage(t)

	require.Error(t, image.ResetForRetry())

	require.NoError(t, image.StartProcessing())
	require.NoError(t, image.CompleteProcessing())
	require.Error(t, image.ResetForRetry())
}
