// Package errors defines the typed error taxonomy used across the pipeline:
// input errors abort the run, data-quality defects are corrected and
// surfaced, integrity and contract violations fail loudly between stages.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an application error
type ErrorKind string

const (
	// ErrKindInput covers missing files, unreadable CSV/XLSX data and
	// missing expected columns. Input errors abort the run before any
	// stage output is written.
	ErrKindInput ErrorKind = "INPUT"

	// ErrKindParsing covers malformed rows and unparseable values inside
	// an otherwise readable input.
	ErrKindParsing ErrorKind = "PARSING"

	// ErrKindIntegrity covers residual missing values after preprocessing.
	// The pipeline must not proceed to signal generation past one of these.
	ErrKindIntegrity ErrorKind = "INTEGRITY"

	// ErrKindContract covers NaN or Inf values reaching the backtester,
	// which only ever consumes already-cleaned tables.
	ErrKindContract ErrorKind = "CONTRACT"

	// ErrKindStorage covers unwritable output artifacts.
	ErrKindStorage ErrorKind = "STORAGE"

	// ErrKindValidation covers invalid configuration or request payloads.
	ErrKindValidation ErrorKind = "VALIDATION"

	// ErrKindConfig covers unloadable configuration.
	ErrKindConfig ErrorKind = "CONFIG"

	// ErrKindConflict covers operations rejected because of current state,
	// such as triggering a run while one is active.
	ErrKindConflict ErrorKind = "CONFLICT"

	// ErrKindNotFound covers requests for artifacts that do not exist,
	// such as results queried before the first completed run.
	ErrKindNotFound ErrorKind = "NOT_FOUND"
)

// AppError represents an application-specific error
type AppError struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(kind ErrorKind, message string, cause error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsKind reports whether err is (or wraps) an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Helper functions for common error kinds

// NewInputError creates an input-file error
func NewInputError(message string, cause error) *AppError {
	return NewAppError(ErrKindInput, message, cause)
}

// NewParsingError creates a parsing error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrKindParsing, message, cause)
}

// NewIntegrityError creates a data-integrity error carrying the residual
// missing-value count.
func NewIntegrityError(message string, missing int) *AppError {
	e := NewAppError(ErrKindIntegrity, message, nil)
	return e.WithContext("missing_values", missing)
}

// NewContractError creates a stage-contract violation error
func NewContractError(message string) *AppError {
	return NewAppError(ErrKindContract, message, nil)
}

// NewStorageError creates a storage error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrKindStorage, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrKindValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrKindConfig, message, cause)
}

// NewConflictError creates a state-conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrKindConflict, message, nil)
}

// NewNotFoundError creates a missing-artifact error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrKindNotFound, message, nil)
}
