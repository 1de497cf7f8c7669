package dto

import (
	"time"

	"ruleindex/internal/domain/entity"

	"github.com/google/uuid"
)

// BatchStatusDTO is the caller-visible snapshot of a batch's progress.
type BatchStatusDTO struct {
	ID                   uuid.UUID  `json:"id"`
	GameID               uuid.UUID  `json:"game_id"`
	TotalImages          int        `json:"total_images"`
	ProcessedImages      int        `json:"processed_images"`
	FailedImages         int        `json:"failed_images"`
	Status               string     `json:"status"`
	RetryCount           int        `json:"retry_count"`
	MaxRetries           int        `json:"max_retries"`
	ProgressRatio        string     `json:"progress_ratio"`
	CompletionPercentage float64    `json:"completion_percentage"`
	FailurePercentage    float64    `json:"failure_percentage"`
	CanRetry             bool       `json:"can_retry"`
	CreatedAt            time.Time  `json:"created_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// NewBatchStatusDTO projects a batch entity into its status snapshot.
func NewBatchStatusDTO(batch *entity.ImageBatch) BatchStatusDTO {
	return BatchStatusDTO{
		ID:                   batch.ID(),
		GameID:               batch.GameID(),
		TotalImages:          batch.TotalImages(),
		ProcessedImages:      batch.ProcessedImages(),
		FailedImages:         batch.FailedImages(),
		Status:               batch.Status().String(),
		RetryCount:           batch.RetryCount(),
		MaxRetries:           batch.MaxRetries(),
		ProgressRatio:        batch.ProgressRatio(),
		CompletionPercentage: batch.CompletionPercentage(),
		FailurePercentage:    batch.FailurePercentage(),
		CanRetry:             batch.CanRetry(),
		CreatedAt:            batch.CreatedAt(),
		CompletedAt:          batch.CompletedAt(),
	}
}
