// Package domain provides domain-specific error definitions and utilities.
package domain

import "errors"

// Batch-related errors.
var (
	ErrBatchNotFound   = errors.New("image batch not found")
	ErrInvalidBatch    = errors.New("batch must contain at least one image")
	ErrRetryNotAllowed = errors.New("batch retry not allowed: retry budget exhausted or no failed images")
)

// Image-related errors.
var (
	ErrImageNotFound = errors.New("game image not found")
	ErrStaleJob      = errors.New("stale job: image is already owned or in a terminal state")
)

// Search-related errors.
var (
	ErrInvalidSearchRequest = errors.New("invalid search request")
	ErrEmptyQuery           = errors.New("query text cannot be empty")
)

// General domain errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)
