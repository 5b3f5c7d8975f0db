package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for BrandPulse errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_INVALID_DURATION  ErrorCode = "CONFIG_INVALID_DURATION"
)

// Store error codes
const (
	STORE_OPEN_FAILED  ErrorCode = "STORE_OPEN_FAILED"
	STORE_SAVE_FAILED  ErrorCode = "STORE_SAVE_FAILED"
	STORE_QUERY_FAILED ErrorCode = "STORE_QUERY_FAILED"
)

// Connector error codes
const (
	CONNECTOR_FETCH_FAILED ErrorCode = "CONNECTOR_FETCH_FAILED"
	CONNECTOR_NOT_FOUND    ErrorCode = "CONNECTOR_NOT_FOUND"
)

// Workflow error codes
const (
	WORKFLOW_INVALID_INPUT  ErrorCode = "WORKFLOW_INVALID_INPUT"
	WORKFLOW_CANCELLED      ErrorCode = "WORKFLOW_CANCELLED"
	WORKFLOW_TASK_EXHAUSTED ErrorCode = "WORKFLOW_TASK_EXHAUSTED"
)

// Queue error codes
const (
	QUEUE_RETRIES_EXHAUSTED ErrorCode = "QUEUE_RETRIES_EXHAUSTED"
	QUEUE_STOPPED           ErrorCode = "QUEUE_STOPPED"
)

// PulseError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type PulseError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *PulseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *PulseError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a PulseError with the same Code.
func (e *PulseError) Is(target error) bool {
	var pulseErr *PulseError
	if errors.As(target, &pulseErr) {
		return e.Code == pulseErr.Code
	}
	return false
}

// NewError creates a new non-retryable PulseError with the given code and message.
func NewError(code ErrorCode, message string) *PulseError {
	return &PulseError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable PulseError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *PulseError {
	return &PulseError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable PulseError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *PulseError {
	return &PulseError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns an empty code if the chain contains no PulseError.
func CodeOf(err error) ErrorCode {
	var pulseErr *PulseError
	if errors.As(err, &pulseErr) {
		return pulseErr.Code
	}
	return ""
}
