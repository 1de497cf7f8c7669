package service

import (
	"context"
	"fmt"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/messaging"
	"ruleindex/internal/domain/valueobject"
	"ruleindex/internal/port/outbound"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentRequeues bounds the fan-out when re-enqueueing the failed
// images of a batch during a batch-level retry.
const maxConcurrentRequeues = 8

// BatchLifecycleService creates batches, applies per-image outcomes to
// batch counters, and decides retry eligibility.
type BatchLifecycleService struct {
	batchRepo    outbound.ImageBatchRepository
	imageRepo    outbound.GameImageRepository
	jobPublisher outbound.JobPublisher
	maxRetries   int
}

// NewBatchLifecycleService creates a new BatchLifecycleService.
// defaultMaxRetries is the per-image retry budget stamped onto jobs
// re-enqueued by batch retries.
func NewBatchLifecycleService(
	batchRepo outbound.ImageBatchRepository,
	imageRepo outbound.GameImageRepository,
	jobPublisher outbound.JobPublisher,
	defaultMaxRetries int,
) *BatchLifecycleService {
	if batchRepo == nil {
		panic("batchRepo cannot be nil")
	}
	if imageRepo == nil {
		panic("imageRepo cannot be nil")
	}
	if jobPublisher == nil {
		panic("jobPublisher cannot be nil")
	}

	return &BatchLifecycleService{
		batchRepo:    batchRepo,
		imageRepo:    imageRepo,
		jobPublisher: jobPublisher,
		maxRetries:   defaultMaxRetries,
	}
}

// CreateBatch creates a new batch for a group of images about to be uploaded.
func (s *BatchLifecycleService) CreateBatch(
	ctx context.Context,
	gameID uuid.UUID,
	totalImages int,
	maxRetries int,
) (*entity.ImageBatch, error) {
	batch, err := entity.NewImageBatch(gameID, totalImages, maxRetries)
	if err != nil {
		return nil, err
	}

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to save batch: %w", err)
	}

	slogger.Info(ctx, "Image batch created", slogger.Fields{
		"batch_id":     batch.ID().String(),
		"game_id":      gameID.String(),
		"total_images": totalImages,
		"max_retries":  maxRetries,
	})

	return batch, nil
}

// GetBatch loads a batch by ID.
func (s *BatchLifecycleService) GetBatch(ctx context.Context, batchID uuid.UUID) (*entity.ImageBatch, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	if batch == nil {
		return nil, domainerrors.ErrBatchNotFound
	}
	return batch, nil
}

// RecordImageOutcome applies one image's final outcome to its batch. The
// repository performs the increment and the status recomputation under a
// per-batch serialized update, so concurrent image completions from
// independent workers never lose an increment.
func (s *BatchLifecycleService) RecordImageOutcome(
	ctx context.Context,
	batchID uuid.UUID,
	succeeded bool,
) (*entity.ImageBatch, error) {
	batch, err := s.batchRepo.RecordOutcome(ctx, batchID, succeeded)
	if err != nil {
		return nil, fmt.Errorf("failed to record image outcome: %w", err)
	}

	slogger.Info(ctx, "Batch progress updated", slogger.Fields{
		"batch_id":  batchID.String(),
		"succeeded": succeeded,
		"progress":  batch.ProgressRatio(),
		"failed":    batch.FailedRatio(),
		"status":    batch.Status().String(),
	})

	return batch, nil
}

// RetryBatch re-runs the failed images of a batch. Valid only while the
// batch is retry-eligible: the retry counter is incremented, the failed
// counter resets, every failed image returns to the queue with a fresh
// job, and the batch transitions back to processing.
func (s *BatchLifecycleService) RetryBatch(ctx context.Context, batchID uuid.UUID) (*entity.ImageBatch, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	failedImages, err := s.imageRepo.FindByBatchID(ctx, batchID, valueobject.ImageStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed images: %w", err)
	}

	if err := batch.StartRetry(); err != nil {
		return nil, err
	}

	if err := s.batchRepo.Update(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to update batch for retry: %w", err)
	}

	if err := s.requeueFailedImages(ctx, batch, failedImages); err != nil {
		return nil, err
	}

	slogger.Info(ctx, "Batch retry started", slogger.Fields{
		"batch_id":       batchID.String(),
		"retry_count":    batch.RetryCount(),
		"requeued_count": len(failedImages),
	})

	return batch, nil
}

// requeueFailedImages resets each failed image and publishes a fresh job
// for it. Fan-out is bounded; the first error aborts the remaining work.
func (s *BatchLifecycleService) requeueFailedImages(
	ctx context.Context,
	batch *entity.ImageBatch,
	images []*entity.GameImage,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequeues)

	for _, image := range images {
		g.Go(func() error {
			if err := image.ResetForRetry(); err != nil {
				return fmt.Errorf("failed to reset image %s: %w", image.ID(), err)
			}
			if err := s.imageRepo.Update(gctx, image); err != nil {
				return fmt.Errorf("failed to persist image reset %s: %w", image.ID(), err)
			}

			batchID := batch.ID()
			job := messaging.NewProcessingJobMessage(
				image.ID(),
				image.GameID(),
				&batchID,
				image.BlobPath(),
				image.OriginalFilename(),
				s.maxRetries,
			)
			if err := s.jobPublisher.PublishProcessingJob(gctx, job); err != nil {
				return fmt.Errorf("failed to enqueue retry job for image %s: %w", image.ID(), err)
			}
			return nil
		})
	}

	return g.Wait()
}
