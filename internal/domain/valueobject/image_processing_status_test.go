package valueobject

import (
	"testing"
)

func TestNewImageProcessingStatus_ValidStatuses(t *testing.T) {
	validStatuses := []struct {
		input    string
		expected ImageProcessingStatus
	}{
		{"uploaded", ImageStatusUploaded},
		{"processing", ImageStatusProcessing},
		{"retrying", ImageStatusRetrying},
		{"completed", ImageStatusCompleted},
		{"failed", ImageStatusFailed},
	}

	for _, tc := range validStatuses {
		t.Run(tc.input, func(t *testing.T) {
			status, err := NewImageProcessingStatus(tc.input)
			if err != nil {
				t.Fatalf("Expected no error for valid status %s, got: %v", tc.input, err)
			}

			if status != tc.expected {
				t.Errorf("Expected status %s, got %s", tc.expected, status)
			}
		})
	}
}

func TestNewImageProcessingStatus_InvalidStatuses(t *testing.T) {
	invalidStatuses := []string{"invalid", "UPLOADED", "", "pending", "done"}

	for _, status := range invalidStatuses {
		t.Run(status, func(t *testing.T) {
			_, err := NewImageProcessingStatus(status)
			if err == nil {
				t.Fatalf("Expected error for invalid status %s, got none", status)
			}
		})
	}
}

func TestImageProcessingStatus_IsClaimable(t *testing.T) {
	claimable := map[ImageProcessingStatus]bool{
		ImageStatusUploaded:   true,
		ImageStatusRetrying:   true,
		ImageStatusProcessing: false,
		ImageStatusCompleted:  false,
		ImageStatusFailed:     false,
	}

	for status, expected := range claimable {
		t.Run(status.String(), func(t *testing.T) {
			if status.IsClaimable() != expected {
				t.Errorf("Expected IsClaimable()=%v for %s", expected, status)
			}
		})
	}
}

func TestImageProcessingStatus_CanTransitionTo(t *testing.T) {
	testCases := []struct {
		from    ImageProcessingStatus
		to      ImageProcessingStatus
		allowed bool
	}{
		{ImageStatusUploaded, ImageStatusProcessing, true},
		{ImageStatusUploaded, ImageStatusCompleted, false},
		{ImageStatusProcessing, ImageStatusCompleted, true},
		{ImageStatusProcessing, ImageStatusRetrying, true},
		{ImageStatusProcessing, ImageStatusFailed, true},
		{ImageStatusRetrying, ImageStatusProcessing, true},
		{ImageStatusRetrying, ImageStatusFailed, false},
		{ImageStatusCompleted, ImageStatusProcessing, false},
		{ImageStatusFailed, ImageStatusProcessing, false},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String()+"_to_"+tc.to.String(), func(t *testing.T) {
			if tc.from.CanTransitionTo(tc.to) != tc.allowed {
				t.Errorf("Expected CanTransitionTo(%s -> %s)=%v", tc.from, tc.to, tc.allowed)
			}
		})
	}
}
