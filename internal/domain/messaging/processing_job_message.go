// Package messaging provides the domain message types exchanged over the
// job queue transport. A ProcessingJobMessage is a transient work item:
// it exists only inside the queue and carries the identity needed to
// process exactly one image, including its retry bookkeeping.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Validation limits.
const (
	maxMessageIDLength = 255
	maxRetryLimit      = 100
	maxBlobPathLength  = 500
	maxFilenameLength  = 255
)

// ProcessingJobMessage is the queued instruction to process one image.
// BatchID is nil for standalone uploads. RetryCount carries the job-local
// attempt counter across redeliveries; the same message identity is kept
// for the whole retry chain so duplicate deliveries can be recognized.
type ProcessingJobMessage struct {
	MessageID  string     `json:"message_id"`
	ImageID    uuid.UUID  `json:"image_id"`
	GameID     uuid.UUID  `json:"game_id"`
	BatchID    *uuid.UUID `json:"batch_id,omitempty"`
	BlobPath   string     `json:"blob_path"`
	Filename   string     `json:"filename"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewProcessingJobMessage creates a message for a fresh processing attempt.
func NewProcessingJobMessage(
	imageID uuid.UUID,
	gameID uuid.UUID,
	batchID *uuid.UUID,
	blobPath string,
	filename string,
	maxRetries int,
) ProcessingJobMessage {
	return ProcessingJobMessage{
		MessageID:  uuid.New().String(),
		ImageID:    imageID,
		GameID:     gameID,
		BatchID:    batchID,
		BlobPath:   blobPath,
		Filename:   filename,
		RetryCount: 0,
		MaxRetries: maxRetries,
		Timestamp:  time.Now(),
	}
}

// Validate checks the message for structural problems. Messages that fail
// validation are consistency errors and must not be retried.
func (m ProcessingJobMessage) Validate() error {
	if m.MessageID == "" {
		return errors.New("message_id is required")
	}
	if len(m.MessageID) > maxMessageIDLength {
		return errors.New("message_id too long")
	}
	if m.ImageID == uuid.Nil {
		return errors.New("image_id cannot be nil")
	}
	if m.GameID == uuid.Nil {
		return errors.New("game_id cannot be nil")
	}
	if m.BatchID != nil && *m.BatchID == uuid.Nil {
		return errors.New("batch_id cannot be the nil UUID when set")
	}
	if m.BlobPath == "" {
		return errors.New("blob_path is required")
	}
	if len(m.BlobPath) > maxBlobPathLength {
		return errors.New("blob_path too long")
	}
	if len(m.Filename) > maxFilenameLength {
		return errors.New("filename too long")
	}
	if m.RetryCount < 0 {
		return errors.New("retry_count cannot be negative")
	}
	if m.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	if m.MaxRetries > maxRetryLimit {
		return errors.New("max_retries exceeds maximum allowed")
	}
	if m.RetryCount > m.MaxRetries {
		return errors.New("retry_count cannot exceed max_retries")
	}
	return nil
}

// HasRetryBudget reports whether another attempt is allowed after the
// current one fails. An image whose every attempt fails is delivered
// MaxRetries+1 times in total.
func (m ProcessingJobMessage) HasRetryBudget() bool {
	return m.RetryCount < m.MaxRetries
}

// WithRetry returns a copy of the message for the next attempt. Identity
// fields are carried forward unchanged; only the attempt counter moves.
func (m ProcessingJobMessage) WithRetry() ProcessingJobMessage {
	next := m
	next.RetryCount++
	next.Timestamp = time.Now()
	return next
}

// Marshal serializes the message for queue transport.
func (m ProcessingJobMessage) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal processing job message: %w", err)
	}
	return data, nil
}

// UnmarshalProcessingJobMessage deserializes and validates a queued message.
func UnmarshalProcessingJobMessage(data []byte) (ProcessingJobMessage, error) {
	var m ProcessingJobMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ProcessingJobMessage{}, fmt.Errorf("failed to unmarshal processing job message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return ProcessingJobMessage{}, fmt.Errorf("invalid processing job message: %w", err)
	}
	return m, nil
}
