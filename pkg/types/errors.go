package types

import (
	"errors"
	"fmt"
	"strings"
)

// Business-rule errors. None of these are retryable without caller
// correction.
var (
	ErrFormatUnknown            = errors.New("format unknown")
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")
	ErrValidation               = errors.New("validation failed")
	ErrInvalidTransition        = errors.New("invalid state transition")
	ErrMethodNotAllowed         = errors.New("method not allowed")
	ErrNotFound                 = errors.New("not found")
	ErrInvalidEvent             = errors.New("invalid event")
	ErrInvalidIdentifier        = errors.New("invalid identifier")
)

// Store errors. ErrConflict is returned when a commit lost an optimistic
// concurrency race and can be retried after re-reading the record.
var (
	ErrConflict         = errors.New("concurrent modification")
	ErrStoreDetached    = errors.New("store is detached")
	ErrAlreadyAttached  = errors.New("store is already attached")
	ErrSnapshotMismatch = errors.New("snapshot does not belong to record")
)

// Stable field error codes.
const (
	CodeRequired    = "required"
	CodeEnumeration = "enumeration"
	CodeFormat      = "format"
	CodeMismatch    = "mismatch"
	CodeTooLong     = "too_long"
	CodeShape       = "shape"
	CodeOutOfRange  = "out_of_range"
	CodeNotAllowed  = "not_allowed"
	CodeMalformed   = "malformed"
	CodeUnsupported = "unsupported"
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationError carries every field failure found in one submission.
type ValidationError struct {
	Identifier string
	Errors     []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	if e.Identifier != "" {
		return fmt.Sprintf("DOI %s: %s", e.Identifier, strings.Join(parts, "; "))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError returns nil when errs is empty.
func NewValidationError(identifier string, errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Identifier: identifier, Errors: errs}
}

// UnsupportedSchemaError reports a retired schema generation.
type UnsupportedSchemaError struct {
	Identifier string
	Namespace  string
}

func (e *UnsupportedSchemaError) Error() string {
	id := e.Identifier
	if id == "" {
		id = "(unknown)"
	}
	return fmt.Sprintf("DOI %s: Schema %s is no longer supported", id, e.Namespace)
}

func (e *UnsupportedSchemaError) Unwrap() error { return ErrUnsupportedSchemaVersion }

// TransitionError reports a failed lifecycle guard. The record is left
// untouched.
type TransitionError struct {
	Event  Event
	From   State
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from %s: %s", e.Event, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// StoreError wraps an internal persistence failure. Store errors are the
// only failures a caller may retry unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is an internal store failure or a lost
// concurrency race.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	var se *StoreError
	if errors.As(err, &se) {
		return !errors.Is(se.Err, ErrNotFound) && !errors.Is(se.Err, ErrStoreDetached)
	}
	return false
}

// FieldErrors extracts the field failures carried by err, if any.
func FieldErrors(err error) []FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	return nil
}
