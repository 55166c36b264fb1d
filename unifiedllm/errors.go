package unifiedllm

import (
	"errors"
	"fmt"
)

// SDKError is the base error type for all unified LLM errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error returned by an LLM provider.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("[%s] %s (status=%d, type=%s)", e.Provider, e.Message, e.StatusCode, e.ErrorCode)
	}
	return fmt.Sprintf("[%s] %s (status=%d)", e.Provider, e.Message, e.StatusCode)
}

func (e *ProviderError) providerError() *ProviderError { return e }

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

type RequestTimeoutError struct{ SDKError }
type AbortError struct{ SDKError }
type NetworkError struct{ SDKError }
type ConfigurationError struct{ SDKError }

// ErrorFromStatusCode maps an HTTP status code to the appropriate error type.
func ErrorFromStatusCode(statusCode int, message, provider, errorCode string, retryAfter *float64) error {
	pe := ProviderError{
		SDKError:   SDKError{Message: message},
		Provider:   provider,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		RetryAfter: retryAfter,
	}

	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{ProviderError: pe}
	case 401:
		return &AuthenticationError{ProviderError: pe}
	case 403:
		return &AccessDeniedError{ProviderError: pe}
	case 404:
		return &NotFoundError{ProviderError: pe}
	case 408:
		return &RequestTimeoutError{SDKError: SDKError{Message: message}}
	case 413:
		return &ContextLengthError{ProviderError: pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 500, 502, 503, 504, 529:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	default:
		pe.Retryable = statusCode >= 500
		return &pe
	}
}

// AsProviderError finds the first provider error in err's chain, whatever its
// concrete subtype.
func AsProviderError(err error) (*ProviderError, bool) {
	var target interface{ providerError() *ProviderError }
	if errors.As(err, &target) {
		return target.providerError(), true
	}
	return nil, false
}

// IsTransient reports whether the same request could succeed if sent again
// later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var (
		timeout *RequestTimeoutError
		network *NetworkError
	)
	if errors.As(err, &timeout) || errors.As(err, &network) {
		return true
	}
	if pe, ok := AsProviderError(err); ok {
		return pe.Retryable
	}
	return false
}
