// Package errors holds the error definitions shared by every layer of the
// ingestion service.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - HTTPStatus mapping for the transport layer
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound        = errors.New("not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrSummaryNotFound = errors.New("summary not found")

	// Validation errors
	ErrValidation      = errors.New("validation failed")
	ErrTooFewRows      = errors.New("too few valid rows")
	ErrMalformedRow    = errors.New("malformed row")
	ErrMalformedUpload = errors.New("malformed upload")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingField    = errors.New("missing required field")

	// Query errors
	ErrInvalidFilter = errors.New("invalid filter combination")

	// Pipeline errors
	ErrIngestion        = errors.New("ingestion failed")
	ErrEmptyAccumulator = errors.New("no measurements accumulated")

	// Internal errors
	ErrPersistence = errors.New("persistence error")
	ErrStoreClosed = errors.New("store is closed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrSummaryNotFound)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrTooFewRows) ||
		errors.Is(err, ErrMalformedRow) ||
		errors.Is(err, ErrMalformedUpload) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// IsInvalidFilter returns true if err reports a rejected filter combination.
func IsInvalidFilter(err error) bool {
	return errors.Is(err, ErrInvalidFilter)
}

// IsPersistence returns true if err originated in the store.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrStoreClosed)
}

// ============================================================================
// Error to HTTP status mapping
// ============================================================================

// HTTPStatus maps an error to the status code the transport layer reports.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case IsInvalidFilter(err), IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Persistence marks err as a store failure while keeping the cause reachable.
func Persistence(err error, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrValidation)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// NewInvalidFilter creates a filter-combination error.
func NewInvalidFilter(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidFilter)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewInvalidValue(field, "", reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
