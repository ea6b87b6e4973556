package errors

import "fmt"

// ErrorCode represents a Nudge error code.
type ErrorCode string

const (
	ErrValidation   ErrorCode = "VALIDATION"    // 400
	ErrNotFound     ErrorCode = "NOT_FOUND"     // 404
	ErrCorruptState ErrorCode = "CORRUPT_STATE" // 500, readable as empty state
	ErrStorage      ErrorCode = "STORAGE"       // 500
	ErrInternal     ErrorCode = "INTERNAL"      // 500
)

// EngineError represents a structured error with code, status, and details.
type EngineError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidation creates a 400 error for invalid input.
func NewValidation(msg string) *EngineError {
	return &EngineError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewMissingField creates a 400 error naming the first missing required field.
func NewMissingField(field string) *EngineError {
	return &EngineError{
		Code:    ErrValidation,
		Status:  400,
		Message: fmt.Sprintf("missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// NewInvalidValue creates a 400 error for a value outside a closed enum.
func NewInvalidValue(field, value string, allowed []string) *EngineError {
	return &EngineError{
		Code:    ErrValidation,
		Status:  400,
		Message: fmt.Sprintf("invalid %s: %q (allowed: %v)", field, value, allowed),
		Details: map[string]any{"field": field, "value": value, "allowed": allowed},
	}
}

// NewNotFound creates a 404 error for a missing record.
// "Not found" is an expected steady state for heartbeat and cache reads;
// callers check the code rather than treating it as a failure.
func NewNotFound(kind, identifier string) *EngineError {
	return &EngineError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewCorruptState creates an error for an unreadable state file.
// Callers treat this as a cache miss (rebuild, don't crash) but can log it.
func NewCorruptState(path string, cause error) *EngineError {
	msg := fmt.Sprintf("unreadable state file: %s", path)
	if cause != nil {
		msg = fmt.Sprintf("unreadable state file %s: %v", path, cause)
	}
	return &EngineError{
		Code:    ErrCorruptState,
		Status:  500,
		Message: msg,
		Details: map[string]any{"path": path},
	}
}

// NewStorage creates a 500 error for a disk or database failure.
// Fatal to the current operation; the core does not retry internally.
func NewStorage(err error) *EngineError {
	msg := "storage failure"
	if err != nil {
		msg = err.Error()
	}
	return &EngineError{
		Code:    ErrStorage,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *EngineError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &EngineError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is an EngineError with the given code.
func Is(err error, code ErrorCode) bool {
	if eErr, ok := err.(*EngineError); ok {
		return eErr.Code == code
	}
	return false
}
