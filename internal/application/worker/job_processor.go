// Package worker implements the image processing pipeline: it consumes
// processing jobs, invokes the AI backend, persists extracted vectors,
// and applies per-image state transitions with bounded retry.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/messaging"
	"ruleindex/internal/port/inbound"
	"ruleindex/internal/port/outbound"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
)

// defaultAnalysisTimeout bounds the AI backend call when no timeout is configured.
const defaultAnalysisTimeout = 120 * time.Second

// BatchProgressRecorder receives per-image outcomes for batch bookkeeping.
type BatchProgressRecorder interface {
	RecordImageOutcome(ctx context.Context, batchID uuid.UUID, succeeded bool) (*entity.ImageBatch, error)
}

// JobProcessorConfig holds configuration for the image job processor.
type JobProcessorConfig struct {
	AnalysisTimeout time.Duration
}

// ImageJobProcessor processes one queued image job end to end.
type ImageJobProcessor struct {
	config        JobProcessorConfig
	imageRepo     outbound.GameImageRepository
	vectorRepo    outbound.GameVectorRepository
	blobStorage   outbound.BlobStorage
	aiService     outbound.ImageAnalysisService
	jobPublisher  outbound.JobPublisher
	batchRecorder BatchProgressRecorder
	metrics       *JobMetrics
}

// NewImageJobProcessor creates a new ImageJobProcessor.
func NewImageJobProcessor(
	config JobProcessorConfig,
	imageRepo outbound.GameImageRepository,
	vectorRepo outbound.GameVectorRepository,
	blobStorage outbound.BlobStorage,
	aiService outbound.ImageAnalysisService,
	jobPublisher outbound.JobPublisher,
	batchRecorder BatchProgressRecorder,
	metrics *JobMetrics,
) inbound.JobProcessor {
	if config.AnalysisTimeout <= 0 {
		config.AnalysisTimeout = defaultAnalysisTimeout
	}

	return &ImageJobProcessor{
		config:        config,
		imageRepo:     imageRepo,
		vectorRepo:    vectorRepo,
		blobStorage:   blobStorage,
		aiService:     aiService,
		jobPublisher:  jobPublisher,
		batchRecorder: batchRecorder,
		metrics:       metrics,
	}
}

// ProcessJob handles one dequeued job. Consistency errors (invalid message,
// missing image, stale ownership) are returned to the consumer, which logs
// and drops them without touching batch counters. Processing failures are
// absorbed into the bounded retry flow and never propagate.
func (p *ImageJobProcessor) ProcessJob(ctx context.Context, job messaging.ProcessingJobMessage) error {
	startTime := time.Now()

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrInvalidInput, err)
	}

	image, err := p.claimImage(ctx, job)
	if err != nil {
		return err
	}

	slogger.Info(ctx, "Processing image job", slogger.Fields{
		"message_id":  job.MessageID,
		"image_id":    job.ImageID.String(),
		"retry_count": job.RetryCount,
	})

	result, procErr := p.analyze(ctx, job)
	if procErr != nil {
		p.handleFailure(ctx, job, image, procErr)
		p.observe(ctx, job, "failure", time.Since(startTime))
		return nil
	}

	if err := p.persistSuccess(ctx, job, image, result); err != nil {
		// Persistence failed after extraction succeeded; the attempt
		// counts as a processing failure so redelivery stays safe.
		p.handleFailure(ctx, job, image, err)
		p.observe(ctx, job, "failure", time.Since(startTime))
		return nil
	}

	p.observe(ctx, job, "success", time.Since(startTime))
	return nil
}

// claimImage takes single-worker ownership of the job's image. The
// repository's compare-and-set rejects duplicate deliveries of a job whose
// image is already processing or settled.
func (p *ImageJobProcessor) claimImage(
	ctx context.Context,
	job messaging.ProcessingJobMessage,
) (*entity.GameImage, error) {
	image, err := p.imageRepo.ClaimForProcessing(ctx, job.ImageID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrStaleJob) || errors.Is(err, domainerrors.ErrImageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to claim image %s: %w", job.ImageID, err)
	}
	return image, nil
}

// analyze downloads the image bytes and runs AI extraction under the
// configured timeout. Download errors, backend errors, timeouts, and
// backend-reported failures all surface as processing failures.
func (p *ImageJobProcessor) analyze(
	ctx context.Context,
	job messaging.ProcessingJobMessage,
) (*outbound.ImageAnalysisResult, error) {
	imageData, err := p.blobStorage.Download(ctx, job.BlobPath)
	if err != nil {
		return nil, fmt.Errorf("failed to download image from %s: %w", job.BlobPath, err)
	}

	analysisCtx, cancel := context.WithTimeout(ctx, p.config.AnalysisTimeout)
	defer cancel()

	result, err := p.aiService.ProcessImage(analysisCtx, imageData, job.Filename)
	if err != nil {
		return nil, fmt.Errorf("AI processing failed: %w", err)
	}
	if !result.Success {
		message := result.ErrorMessage
		if message == "" {
			message = "AI backend reported failure"
		}
		return nil, errors.New(message)
	}

	return result, nil
}

// persistSuccess writes the extracted vector, marks the image completed,
// and records the success on the owning batch.
func (p *ImageJobProcessor) persistSuccess(
	ctx context.Context,
	job messaging.ProcessingJobMessage,
	image *entity.GameImage,
	result *outbound.ImageAnalysisResult,
) error {
	vector, err := buildVector(job, result)
	if err != nil {
		return err
	}

	if err := p.vectorRepo.Save(ctx, vector); err != nil {
		return fmt.Errorf("failed to save vector: %w", err)
	}

	// The completion transition runs on a copy: the caller's entity must
	// stay in processing when the update fails, or handleFailure could not
	// apply the retry transition afterwards.
	completed := *image
	if err := completed.CompleteProcessing(); err != nil {
		return err
	}
	if err := p.imageRepo.Update(ctx, &completed); err != nil {
		return fmt.Errorf("failed to mark image completed: %w", err)
	}

	if job.BatchID != nil {
		if _, err := p.batchRecorder.RecordImageOutcome(ctx, *job.BatchID, true); err != nil {
			slogger.ErrorWithError(ctx, err, "Failed to record batch success", slogger.Fields{
				"batch_id": job.BatchID.String(),
				"image_id": job.ImageID.String(),
			})
		}
	}

	slogger.Info(ctx, "Image processed", slogger.Fields{
		"image_id":  job.ImageID.String(),
		"vector_id": vector.ID().String(),
	})
	return nil
}

// handleFailure applies the bounded retry rule: with budget remaining the
// image goes to retrying and the job is re-enqueued with its attempt
// counter advanced; once the budget is exhausted the image fails
// permanently and the batch is told.
func (p *ImageJobProcessor) handleFailure(
	ctx context.Context,
	job messaging.ProcessingJobMessage,
	image *entity.GameImage,
	cause error,
) {
	attempts := job.RetryCount + 1

	if job.HasRetryBudget() {
		retry := job.WithRetry()
		if err := image.ScheduleRetry(retry.RetryCount, cause.Error()); err != nil {
			slogger.ErrorWithError(ctx, err, "Failed to transition image to retrying", slogger.Fields{
				"image_id": job.ImageID.String(),
			})
			return
		}
		if err := p.imageRepo.Update(ctx, image); err != nil {
			slogger.ErrorWithError(ctx, err, "Failed to persist retry transition", slogger.Fields{
				"image_id": job.ImageID.String(),
			})
			return
		}
		if err := p.jobPublisher.PublishProcessingJob(ctx, retry); err != nil {
			slogger.ErrorWithError(ctx, err, "Failed to re-enqueue job", slogger.Fields{
				"image_id":    job.ImageID.String(),
				"retry_count": retry.RetryCount,
			})
			return
		}

		if p.metrics != nil {
			p.metrics.RecordRetry(ctx)
		}
		slogger.Warn(ctx, "Image processing failed, retry scheduled", slogger.Fields{
			"image_id":    job.ImageID.String(),
			"attempt":     attempts,
			"max_retries": job.MaxRetries,
			"error":       cause.Error(),
		})
		return
	}

	if err := image.FailProcessing(job.RetryCount, cause.Error()); err != nil {
		slogger.ErrorWithError(ctx, err, "Failed to transition image to failed", slogger.Fields{
			"image_id": job.ImageID.String(),
		})
		return
	}
	if err := p.imageRepo.Update(ctx, image); err != nil {
		slogger.ErrorWithError(ctx, err, "Failed to persist permanent failure", slogger.Fields{
			"image_id": job.ImageID.String(),
		})
		return
	}

	if job.BatchID != nil {
		if _, err := p.batchRecorder.RecordImageOutcome(ctx, *job.BatchID, false); err != nil {
			slogger.ErrorWithError(ctx, err, "Failed to record batch failure", slogger.Fields{
				"batch_id": job.BatchID.String(),
				"image_id": job.ImageID.String(),
			})
		}
	}

	slogger.Error(ctx, "Image processing failed permanently", slogger.Fields{
		"image_id": job.ImageID.String(),
		"attempts": attempts,
		"error":    cause.Error(),
	})
}

func (p *ImageJobProcessor) observe(
	ctx context.Context,
	job messaging.ProcessingJobMessage,
	result string,
	duration time.Duration,
) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordJob(ctx, result, job.RetryCount, duration)
}

// buildVector assembles the GameVector from whichever channels the backend
// returned.
func buildVector(
	job messaging.ProcessingJobMessage,
	result *outbound.ImageAnalysisResult,
) (*entity.GameVector, error) {
	var ocr, description, labels *entity.ChannelPair

	if result.ExtractedText != "" && len(result.TextEmbedding) > 0 {
		ocr = &entity.ChannelPair{Content: result.ExtractedText, Embedding: result.TextEmbedding}
	}
	if result.VisualDescription != "" && len(result.DescriptionEmbedding) > 0 {
		description = &entity.ChannelPair{Content: result.VisualDescription, Embedding: result.DescriptionEmbedding}
	}
	if len(result.Labels) > 0 && len(result.LabelsEmbedding) > 0 {
		// Labels are stored as a JSON array so structured consumers can
		// parse them back out of the content column.
		encoded, err := json.Marshal(result.Labels)
		if err != nil {
			return nil, fmt.Errorf("failed to encode labels: %w", err)
		}
		labels = &entity.ChannelPair{Content: string(encoded), Embedding: result.LabelsEmbedding}
	}

	return entity.NewGameVector(job.GameID, job.ImageID, ocr, description, labels, nil)
}
