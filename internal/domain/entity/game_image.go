package entity

import (
	"time"

	"ruleindex/internal/domain/valueobject"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
)

// GameImage represents one uploaded rule-booklet image. It is created at
// upload time and mutated exclusively by the worker that currently owns it.
type GameImage struct {
	id                    uuid.UUID
	gameID                uuid.UUID
	batchID               *uuid.UUID
	blobPath              string
	originalFilename      string
	fileSize              int64
	processingStatus      valueobject.ImageProcessingStatus
	retryCount            int
	processingError       *string
	createdAt             time.Time
	updatedAt             time.Time
	processingStartedAt   *time.Time
	processingCompletedAt *time.Time
}

// NewGameImage creates a new GameImage entity in the uploaded state.
// batchID is nil for standalone uploads.
func NewGameImage(
	gameID uuid.UUID,
	batchID *uuid.UUID,
	blobPath string,
	originalFilename string,
	fileSize int64,
) *GameImage {
	now := time.Now()
	return &GameImage{
		id:               uuid.New(),
		gameID:           gameID,
		batchID:          batchID,
		blobPath:         blobPath,
		originalFilename: originalFilename,
		fileSize:         fileSize,
		processingStatus: valueobject.ImageStatusUploaded,
		createdAt:        now,
		updatedAt:        now,
	}
}

// RestoreGameImage creates a GameImage entity from stored data.
func RestoreGameImage(
	id uuid.UUID,
	gameID uuid.UUID,
	batchID *uuid.UUID,
	blobPath string,
	originalFilename string,
	fileSize int64,
	processingStatus valueobject.ImageProcessingStatus,
	retryCount int,
	processingError *string,
	createdAt time.Time,
	updatedAt time.Time,
	processingStartedAt *time.Time,
	processingCompletedAt *time.Time,
) *GameImage {
	return &GameImage{
		id:                    id,
		gameID:                gameID,
		batchID:               batchID,
		blobPath:              blobPath,
		originalFilename:      originalFilename,
		fileSize:              fileSize,
		processingStatus:      processingStatus,
		retryCount:            retryCount,
		processingError:       processingError,
		createdAt:             createdAt,
		updatedAt:             updatedAt,
		processingStartedAt:   processingStartedAt,
		processingCompletedAt: processingCompletedAt,
	}
}

// ID returns the image ID.
func (i *GameImage) ID() uuid.UUID {
	return i.id
}

// GameID returns the owning game ID.
func (i *GameImage) GameID() uuid.UUID {
	return i.gameID
}

// BatchID returns the owning batch ID, nil for standalone uploads.
func (i *GameImage) BatchID() *uuid.UUID {
	return i.batchID
}

// BlobPath returns the durable blob storage path of the raw bytes.
func (i *GameImage) BlobPath() string {
	return i.blobPath
}

// OriginalFilename returns the filename supplied at upload time.
func (i *GameImage) OriginalFilename() string {
	return i.originalFilename
}

// FileSize returns the size of the uploaded file in bytes.
func (i *GameImage) FileSize() int64 {
	return i.fileSize
}

// ProcessingStatus returns the current processing status.
func (i *GameImage) ProcessingStatus() valueobject.ImageProcessingStatus {
	return i.processingStatus
}

// RetryCount returns the number of processing attempts that have failed.
func (i *GameImage) RetryCount() int {
	return i.retryCount
}

// ProcessingError returns the last recorded processing error, if any.
func (i *GameImage) ProcessingError() *string {
	return i.processingError
}

// CreatedAt returns the creation timestamp.
func (i *GameImage) CreatedAt() time.Time {
	return i.createdAt
}

// UpdatedAt returns the last update timestamp.
func (i *GameImage) UpdatedAt() time.Time {
	return i.updatedAt
}

// ProcessingStartedAt returns the timestamp of the current processing attempt.
func (i *GameImage) ProcessingStartedAt() *time.Time {
	return i.processingStartedAt
}

// ProcessingCompletedAt returns the successful completion timestamp.
func (i *GameImage) ProcessingCompletedAt() *time.Time {
	return i.processingCompletedAt
}

// StartProcessing claims the image for a worker. Only uploaded or retrying
// images are claimable; duplicate deliveries observe ErrStaleJob.
func (i *GameImage) StartProcessing() error {
	if !i.processingStatus.IsClaimable() {
		return domainerrors.ErrStaleJob
	}

	now := time.Now()
	i.processingStatus = valueobject.ImageStatusProcessing
	i.processingStartedAt = &now
	i.updatedAt = now
	return nil
}

// CompleteProcessing marks the image as successfully processed and clears
// any previous error.
func (i *GameImage) CompleteProcessing() error {
	if !i.processingStatus.CanTransitionTo(valueobject.ImageStatusCompleted) {
		return NewDomainError("cannot complete image in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	i.processingStatus = valueobject.ImageStatusCompleted
	i.processingCompletedAt = &now
	i.processingError = nil
	i.updatedAt = now
	return nil
}

// ScheduleRetry records a failed attempt that still has retry budget.
// The image goes back to retrying and waits for queue redelivery.
func (i *GameImage) ScheduleRetry(retryCount int, cause string) error {
	if !i.processingStatus.CanTransitionTo(valueobject.ImageStatusRetrying) {
		return NewDomainError("cannot schedule retry for image in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	i.processingStatus = valueobject.ImageStatusRetrying
	i.retryCount = retryCount
	i.processingError = &cause
	i.updatedAt = now
	return nil
}

// FailProcessing marks the image as permanently failed with the final error.
func (i *GameImage) FailProcessing(retryCount int, cause string) error {
	if !i.processingStatus.CanTransitionTo(valueobject.ImageStatusFailed) {
		return NewDomainError("cannot fail image in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	i.processingStatus = valueobject.ImageStatusFailed
	i.retryCount = retryCount
	i.processingError = &cause
	i.updatedAt = now
	return nil
}

// ResetForRetry returns a permanently failed image to the uploaded state
// with a fresh retry budget. Used by batch-level retries.
func (i *GameImage) ResetForRetry() error {
	if i.processingStatus != valueobject.ImageStatusFailed {
		return NewDomainError("only failed images can be reset for retry", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	i.processingStatus = valueobject.ImageStatusUploaded
	i.retryCount = 0
	i.processingError = nil
	i.processingStartedAt = nil
	i.processingCompletedAt = nil
	i.updatedAt = now
	return nil
}

// Equal compares two GameImage entities by identity.
func (i *GameImage) Equal(other *GameImage) bool {
	if other == nil {
		return false
	}
	return i.id == other.id
}
