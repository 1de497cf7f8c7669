package valueobject

import "fmt"

// ImageProcessingStatus represents the processing status of a single game image.
type ImageProcessingStatus string

// Image processing status constants.
const (
	ImageStatusUploaded   ImageProcessingStatus = "uploaded"
	ImageStatusProcessing ImageProcessingStatus = "processing"
	ImageStatusRetrying   ImageProcessingStatus = "retrying"
	ImageStatusCompleted  ImageProcessingStatus = "completed"
	ImageStatusFailed     ImageProcessingStatus = "failed"
)

// validImageProcessingStatuses contains all valid image processing statuses.
var validImageProcessingStatuses = map[ImageProcessingStatus]bool{
	ImageStatusUploaded:   true,
	ImageStatusProcessing: true,
	ImageStatusRetrying:   true,
	ImageStatusCompleted:  true,
	ImageStatusFailed:     true,
}

// NewImageProcessingStatus creates a new ImageProcessingStatus with validation.
func NewImageProcessingStatus(status string) (ImageProcessingStatus, error) {
	s := ImageProcessingStatus(status)
	if !validImageProcessingStatuses[s] {
		return "", fmt.Errorf("invalid image processing status: %s", status)
	}
	return s, nil
}

// String returns the string representation of the status.
func (s ImageProcessingStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s ImageProcessingStatus) IsTerminal() bool {
	return s == ImageStatusCompleted || s == ImageStatusFailed
}

// IsClaimable returns true if a worker may take ownership of an image in
// this status. Only one worker may hold an image in processing at a time,
// so a second delivery of the same job must observe a non-claimable status.
func (s ImageProcessingStatus) IsClaimable() bool {
	return s == ImageStatusUploaded || s == ImageStatusRetrying
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s ImageProcessingStatus) CanTransitionTo(target ImageProcessingStatus) bool {
	transitions := map[ImageProcessingStatus][]ImageProcessingStatus{
		ImageStatusUploaded: {
			ImageStatusProcessing,
		},
		ImageStatusProcessing: {
			ImageStatusCompleted,
			ImageStatusRetrying,
			ImageStatusFailed,
		},
		ImageStatusRetrying: {
			ImageStatusProcessing,
		},
		// Terminal states cannot transition
		ImageStatusCompleted: {},
		ImageStatusFailed:    {},
	}

	validTransitions, exists := transitions[s]
	if !exists {
		return false
	}

	for _, validTarget := range validTransitions {
		if target == validTarget {
			return true
		}
	}
	return false
}

// AllImageProcessingStatuses returns all valid image processing statuses.
func AllImageProcessingStatuses() []ImageProcessingStatus {
	statuses := make([]ImageProcessingStatus, 0, len(validImageProcessingStatuses))
	for status := range validImageProcessingStatuses {
		statuses = append(statuses, status)
	}
	return statuses
}
