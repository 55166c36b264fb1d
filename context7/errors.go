package context7

import (
	"errors"
	"fmt"
)

// ErrTokensOutOfRange is returned by GetContext for a token budget outside
// MinTokens..MaxTokens.
var ErrTokensOutOfRange = fmt.Errorf("tokens must be between %d and %d", MinTokens, MaxTokens)

// APIError is the base error for failed Context7 calls.
type APIError struct {
	Message    string
	StatusCode int
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

func (e *APIError) apiError() *APIError { return e }

type AuthError struct{ APIError }
type NotFoundError struct{ APIError }

// RateLimitError carries the raw Retry-After header value, "unknown" when
// the server sent none.
type RateLimitError struct {
	APIError
	RetryAfter string
}

// AsAPIError finds the first Context7 error in err's chain, whatever its
// concrete subtype.
func AsAPIError(err error) (*APIError, bool) {
	var target interface{ apiError() *APIError }
	if errors.As(err, &target) {
		return target.apiError(), true
	}
	return nil, false
}

func errorFromStatus(status int, retryAfter string) error {
	base := APIError{StatusCode: status}
	switch {
	case status == 401 || status == 403:
		base.Message = "Invalid API key. Get a key at https://context7.com/dashboard"
		return &AuthError{APIError: base}
	case status == 404:
		base.Message = "Library not found. Check the --library flag or try a different query."
		return &NotFoundError{APIError: base}
	case status == 429:
		if retryAfter == "" {
			retryAfter = "unknown"
		}
		base.Message = fmt.Sprintf("Rate limit exceeded. Retry after %s seconds.", retryAfter)
		return &RateLimitError{APIError: base, RetryAfter: retryAfter}
	case status >= 500:
		base.Message = fmt.Sprintf("API server error (%d). Please try again later.", status)
		return &base
	default:
		base.Message = fmt.Sprintf("HTTP error %d", status)
		return &base
	}
}
