package entity

import "errors"

// DomainError represents a domain-specific error with a stable code.
type DomainError struct {
	message string
	code    string
}

// NewDomainError creates a new domain error.
func NewDomainError(message, code string) *DomainError {
	return &DomainError{
		message: message,
		code:    code,
	}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return e.message
}

// Code returns the error code.
func (e *DomainError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *DomainError) Message() string {
	return e.message
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.code == code
}
