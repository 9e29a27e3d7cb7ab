package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeUnauthorized  ErrorType = "unauthorized"
	ErrorTypeForbidden     ErrorType = "forbidden"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeBackend       ErrorType = "backend"       // model backend unavailable, timed out or failed
	ErrorTypeScopedEmpty   ErrorType = "scoped_empty"  // retrieval produced nothing within the requested scope
	ErrorTypeConfiguration ErrorType = "configuration" // startup-time misconfiguration
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrUserNotFound     = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrDocumentNotFound = NewDomainError(ErrorTypeNotFound, "document not found", nil)
	ErrThreadNotFound   = NewDomainError(ErrorTypeNotFound, "chat thread not found", nil)
	ErrMessageNotFound  = NewDomainError(ErrorTypeNotFound, "chat message not found", nil)

	// Validation Errors
	ErrInvalidInput        = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyQuestion       = NewDomainError(ErrorTypeValidation, "question cannot be empty", nil)
	ErrInvalidEmail        = NewDomainError(ErrorTypeValidation, "invalid email format", nil)
	ErrInvalidAnalysisKind = NewDomainError(ErrorTypeValidation, "unsupported analysis kind", nil)
	ErrEmptyDocument       = NewDomainError(ErrorTypeValidation, "document contains no extractable text", nil)

	// Authorization Errors
	ErrUnauthorized       = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidCredentials = NewDomainError(ErrorTypeUnauthorized, "invalid username or password", nil)
	ErrInvalidToken       = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrTokenExpired       = NewDomainError(ErrorTypeUnauthorized, "authentication token expired", nil)

	// Permission Errors
	ErrForbidden     = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrOwnerMismatch = NewDomainError(ErrorTypeForbidden, "resource belongs to another user", nil)

	// Conflict Errors
	ErrDuplicateUsername = NewDomainError(ErrorTypeConflict, "username already exists", nil)
	ErrDuplicateEmail    = NewDomainError(ErrorTypeConflict, "email already exists", nil)

	// Internal Errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrCacheFailed   = NewDomainError(ErrorTypeInternal, "cache operation failed", nil)
	ErrIndexFailed   = NewDomainError(ErrorTypeInternal, "vector index operation failed", nil)

	// Backend Errors
	ErrNoBackendsConfigured = NewDomainError(ErrorTypeBackend, "no model backends configured", nil)
	ErrBackendUnavailable   = NewDomainError(ErrorTypeBackend, "model backend unavailable", nil)
	ErrBackendTimeout       = NewDomainError(ErrorTypeBackend, "model backend timeout", nil)
	ErrEmptyModelOutput     = NewDomainError(ErrorTypeBackend, "model returned empty output", nil)

	// Scoped-Empty Errors
	ErrNoContextFound    = NewDomainError(ErrorTypeScopedEmpty, "no relevant context found", nil)
	ErrDocumentNoContent = NewDomainError(ErrorTypeScopedEmpty, "document has no relevant content for this question", nil)

	// Configuration Errors
	ErrInvalidPromptTemplate = NewDomainError(ErrorTypeConfiguration, "invalid prompt template", nil)
	ErrMissingConfiguration  = NewDomainError(ErrorTypeConfiguration, "missing required configuration", nil)

	// Document extraction
	ErrPasswordProtected = NewDomainError(ErrorTypeValidation, "document is password protected and text cannot be extracted", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnauthorized
	}
	return false
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeForbidden
	}
	return false
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConflict
	}
	return false
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInternal
	}
	return false
}

// IsBackendError checks if an error came from the model backend layer
func IsBackendError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeBackend
	}
	return false
}

// IsScopedEmptyError checks if an error is an empty-retrieval outcome
func IsScopedEmptyError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeScopedEmpty
	}
	return false
}

// IsConfigurationError checks if an error is a startup configuration error
func IsConfigurationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConfiguration
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapBackend wraps an error as a model backend error
func WrapBackend(message string, err error) error {
	return NewDomainError(ErrorTypeBackend, message, err)
}
