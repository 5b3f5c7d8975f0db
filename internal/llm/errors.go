package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// LLM error codes follow the BrandPulse error pattern
const (
	// Provider errors
	ErrProviderNotFound     types.ErrorCode = "LLM_PROVIDER_NOT_FOUND"
	ErrProviderInitFailed   types.ErrorCode = "LLM_PROVIDER_INIT_FAILED"
	ErrProviderUnavailable  types.ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
	ErrProviderUnauthorized types.ErrorCode = "LLM_PROVIDER_UNAUTHORIZED"
	ErrProviderRateLimited  types.ErrorCode = "LLM_PROVIDER_RATE_LIMITED"
	ErrProviderInvalidInput types.ErrorCode = "LLM_PROVIDER_INVALID_INPUT"
	ErrProviderExists       types.ErrorCode = "LLM_PROVIDER_ALREADY_EXISTS"

	// Completion errors
	ErrCompletionFailed    types.ErrorCode = "LLM_COMPLETION_FAILED"
	ErrResponseParseFailed types.ErrorCode = "LLM_RESPONSE_PARSE_FAILED"
	ErrTimeoutExceeded     types.ErrorCode = "LLM_TIMEOUT_EXCEEDED"

	// Network errors
	ErrNetworkFailed types.ErrorCode = "LLM_NETWORK_FAILED"
)

// IsRateLimited reports whether an error is a provider-throttling error.
// The kind is carried as a typed error code set by the provider adapter,
// never inferred from free text by callers.
func IsRateLimited(err error) bool {
	var pulseErr *types.PulseError
	if !errors.As(err, &pulseErr) {
		return false
	}
	return pulseErr.Code == ErrProviderRateLimited
}

// IsRetryable determines if an error is transient and may succeed on retry.
func IsRetryable(err error) bool {
	var pulseErr *types.PulseError
	if !errors.As(err, &pulseErr) {
		return false
	}

	if pulseErr.Retryable {
		return true
	}

	switch pulseErr.Code {
	case ErrNetworkFailed, ErrProviderRateLimited, ErrProviderUnavailable, ErrTimeoutExceeded:
		return true
	default:
		return false
	}
}

// NewRateLimitError creates a retryable typed error for provider throttling.
func NewRateLimitError(providerName string) *types.PulseError {
	return &types.PulseError{
		Code:      ErrProviderRateLimited,
		Message:   "rate limit exceeded for provider: " + providerName,
		Retryable: true,
	}
}

// NewProviderUnavailableError creates a retryable error for when a provider
// is temporarily unavailable.
func NewProviderUnavailableError(providerName string, cause error) *types.PulseError {
	return &types.PulseError{
		Code:      ErrProviderUnavailable,
		Message:   "provider temporarily unavailable: " + providerName,
		Retryable: true,
		Cause:     cause,
	}
}

// NewProviderUnauthorizedError creates an unauthorized provider error.
func NewProviderUnauthorizedError(providerName string, cause error) *types.PulseError {
	return &types.PulseError{
		Code:    ErrProviderUnauthorized,
		Message: fmt.Sprintf("provider '%s' authentication failed", providerName),
		Cause:   cause,
	}
}

// NewTimeoutError creates a retryable error for timeout failures.
func NewTimeoutError(message string) *types.PulseError {
	return &types.PulseError{
		Code:      ErrTimeoutExceeded,
		Message:   message,
		Retryable: true,
	}
}

// NewNetworkError creates a retryable error for network failures.
func NewNetworkError(message string, cause error) *types.PulseError {
	return &types.PulseError{
		Code:      ErrNetworkFailed,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewParseError creates an error for unusable provider output.
func NewParseError(message string, cause error) *types.PulseError {
	return types.WrapError(ErrResponseParseFailed, message, cause)
}

// TranslateError translates raw provider/SDK errors into typed errors at
// the adapter boundary. This is the only place throttling detection may
// look at message text; everything downstream switches on the typed code.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var pulseErr *types.PulseError
	if errors.As(err, &pulseErr) {
		return err
	}

	lowerMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lowerMsg, "unauthorized") || strings.Contains(lowerMsg, "authentication") || strings.Contains(lowerMsg, "api key"):
		return NewProviderUnauthorizedError(provider, err)
	case strings.Contains(lowerMsg, "rate limit") || strings.Contains(lowerMsg, "too many requests") || strings.Contains(lowerMsg, "429"):
		return NewRateLimitError(provider)
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline"):
		return NewTimeoutError(err.Error())
	case strings.Contains(lowerMsg, "network") || strings.Contains(lowerMsg, "connection"):
		return NewNetworkError(err.Error(), err)
	default:
		return NewProviderUnavailableError(provider, err)
	}
}
