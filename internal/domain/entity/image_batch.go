package entity

import (
	"strconv"
	"time"

	"ruleindex/internal/domain/valueobject"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
)

// ImageBatch represents one upload operation covering a group of game
// images tracked as a single lifecycle unit. Its status is a deterministic
// function of the counters, recomputed after every recorded image outcome.
type ImageBatch struct {
	id                  uuid.UUID
	gameID              uuid.UUID
	totalImages         int
	processedImages     int
	failedImages        int
	status              valueobject.BatchStatus
	retryCount          int
	maxRetries          int
	createdAt           time.Time
	updatedAt           time.Time
	processingStartedAt *time.Time
	completedAt         *time.Time
}

// NewImageBatch creates a new ImageBatch entity.
func NewImageBatch(gameID uuid.UUID, totalImages, maxRetries int) (*ImageBatch, error) {
	if totalImages <= 0 {
		return nil, domainerrors.ErrInvalidBatch
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	now := time.Now()
	return &ImageBatch{
		id:          uuid.New(),
		gameID:      gameID,
		totalImages: totalImages,
		status:      valueobject.BatchStatusPending,
		maxRetries:  maxRetries,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// RestoreImageBatch creates an ImageBatch entity from stored data.
func RestoreImageBatch(
	id uuid.UUID,
	gameID uuid.UUID,
	totalImages int,
	processedImages int,
	failedImages int,
	status valueobject.BatchStatus,
	retryCount int,
	maxRetries int,
	createdAt time.Time,
	updatedAt time.Time,
	processingStartedAt *time.Time,
	completedAt *time.Time,
) *ImageBatch {
	return &ImageBatch{
		id:                  id,
		gameID:              gameID,
		totalImages:         totalImages,
		processedImages:     processedImages,
		failedImages:        failedImages,
		status:              status,
		retryCount:          retryCount,
		maxRetries:          maxRetries,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
		processingStartedAt: processingStartedAt,
		completedAt:         completedAt,
	}
}

// ID returns the batch ID.
func (b *ImageBatch) ID() uuid.UUID {
	return b.id
}

// GameID returns the owning game ID.
func (b *ImageBatch) GameID() uuid.UUID {
	return b.gameID
}

// TotalImages returns the number of images submitted in the batch.
func (b *ImageBatch) TotalImages() int {
	return b.totalImages
}

// ProcessedImages returns the number of successfully processed images.
func (b *ImageBatch) ProcessedImages() int {
	return b.processedImages
}

// FailedImages returns the number of permanently failed images.
func (b *ImageBatch) FailedImages() int {
	return b.failedImages
}

// Status returns the current batch status.
func (b *ImageBatch) Status() valueobject.BatchStatus {
	return b.status
}

// RetryCount returns the number of batch-level retries performed.
func (b *ImageBatch) RetryCount() int {
	return b.retryCount
}

// MaxRetries returns the batch retry budget.
func (b *ImageBatch) MaxRetries() int {
	return b.maxRetries
}

// CreatedAt returns the creation timestamp.
func (b *ImageBatch) CreatedAt() time.Time {
	return b.createdAt
}

// UpdatedAt returns the last update timestamp.
func (b *ImageBatch) UpdatedAt() time.Time {
	return b.updatedAt
}

// ProcessingStartedAt returns the processing start timestamp.
func (b *ImageBatch) ProcessingStartedAt() *time.Time {
	return b.processingStartedAt
}

// CompletedAt returns the completion timestamp.
func (b *ImageBatch) CompletedAt() *time.Time {
	return b.completedAt
}

// CanRetry returns true if the batch still has retry budget and failed images.
func (b *ImageBatch) CanRetry() bool {
	return b.retryCount < b.maxRetries && b.failedImages > 0
}

// IsSettled returns true if every image in the batch has a recorded outcome.
func (b *ImageBatch) IsSettled() bool {
	return b.processedImages+b.failedImages == b.totalImages
}

// CompletionPercentage returns the fraction of processed images as a percentage.
func (b *ImageBatch) CompletionPercentage() float64 {
	if b.totalImages == 0 {
		return 0.0
	}
	return float64(b.processedImages) / float64(b.totalImages) * 100
}

// FailurePercentage returns the fraction of failed images as a percentage.
func (b *ImageBatch) FailurePercentage() float64 {
	if b.totalImages == 0 {
		return 0.0
	}
	return float64(b.failedImages) / float64(b.totalImages) * 100
}

// ProgressRatio returns a display ratio such as "5/30".
func (b *ImageBatch) ProgressRatio() string {
	return ratioString(b.processedImages, b.totalImages)
}

// FailedRatio returns a display ratio such as "2/30".
func (b *ImageBatch) FailedRatio() string {
	return ratioString(b.failedImages, b.totalImages)
}

// RecordImageOutcome increments the success or failure counter for one
// image and recomputes the batch status. Counters never exceed the total.
func (b *ImageBatch) RecordImageOutcome(succeeded bool) error {
	if b.processedImages+b.failedImages >= b.totalImages {
		return NewDomainError("cannot record more image outcomes than total images", "COUNTER_OVERFLOW")
	}

	now := time.Now()
	if succeeded {
		b.processedImages++
	} else {
		b.failedImages++
	}
	if b.processingStartedAt == nil {
		b.processingStartedAt = &now
	}
	b.updatedAt = now
	b.recomputeStatus(now)
	return nil
}

// StartRetry begins a batch-level retry pass: the retry counter is
// incremented, the failed counter is reset so retried images can be
// re-counted, and the batch returns to processing.
func (b *ImageBatch) StartRetry() error {
	// Retry is only valid once every outcome is in: a mid-flight batch
	// still has workers that will move the counters.
	if !b.IsSettled() || !b.CanRetry() {
		return domainerrors.ErrRetryNotAllowed
	}

	now := time.Now()
	b.failedImages = 0
	b.retryCount++
	b.status = valueobject.BatchStatusProcessing
	b.completedAt = nil
	b.updatedAt = now
	return nil
}

// recomputeStatus applies the deterministic status rule, evaluated in order.
func (b *ImageBatch) recomputeStatus(now time.Time) {
	settled := b.processedImages + b.failedImages

	switch {
	case settled < b.totalImages:
		if settled == 0 {
			b.status = valueobject.BatchStatusPending
		} else {
			b.status = valueobject.BatchStatusProcessing
		}
	case b.failedImages == 0:
		b.status = valueobject.BatchStatusCompleted
		b.completedAt = &now
	case b.CanRetry():
		b.status = valueobject.BatchStatusRetrying
	case b.processedImages > 0:
		b.status = valueobject.BatchStatusPartiallyCompleted
		b.completedAt = &now
	default:
		b.status = valueobject.BatchStatusFailed
		b.completedAt = &now
	}
}

// Equal compares two ImageBatch entities by identity.
func (b *ImageBatch) Equal(other *ImageBatch) bool {
	if other == nil {
		return false
	}
	return b.id == other.id
}

func ratioString(part, total int) string {
	return strconv.Itoa(part) + "/" + strconv.Itoa(total)
}
