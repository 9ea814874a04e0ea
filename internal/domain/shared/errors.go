package shared

import (
	"errors"
	"strings"

	"go.uber.org/multierr"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so callers can compare
// against the shared sentinels even when the message was customised.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrRequestInProgress   = NewDomainError("REQUEST_IN_PROGRESS", "A request with the same idempotency key is still being processed")
)

// ValidationErrorCode is the code reported for input validation failures
const ValidationErrorCode = "VALIDATION_ERROR"

// FieldError is a single rejected input field
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// NewFieldError creates a field-level validation error
func NewFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// ValidationError groups every field that failed validation for one request
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Code returns the error code used by transport layers
func (e *ValidationError) Code() string {
	return ValidationErrorCode
}

// HasField reports whether field is among the failures
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Prefixed returns a copy whose field names are nested under prefix
func (e *ValidationError) Prefixed(prefix string) *ValidationError {
	out := &ValidationError{Fields: make([]FieldError, len(e.Fields))}
	for i, f := range e.Fields {
		out.Fields[i] = FieldError{Field: prefix + "." + f.Field, Reason: f.Reason}
	}
	return out
}

// AsValidationError folds an error built with multierr.Append out of
// FieldErrors (or nested ValidationErrors) into one ValidationError.
// It returns nil when err is nil. Errors that are neither are kept as
// a field named "_".
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}
	out := &ValidationError{}
	for _, e := range multierr.Errors(err) {
		var fe *FieldError
		var ve *ValidationError
		switch {
		case errors.As(e, &fe):
			out.Fields = append(out.Fields, *fe)
		case errors.As(e, &ve):
			out.Fields = append(out.Fields, ve.Fields...)
		default:
			out.Fields = append(out.Fields, FieldError{Field: "_", Reason: e.Error()})
		}
	}
	return out
}
