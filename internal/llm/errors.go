package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// AdapterError represents an error from the model adapter.
type AdapterError struct {
	// Type categorizes the error
	Type string

	// Message is a human-readable error message
	Message string

	// Code is the HTTP status code (if applicable)
	Code int

	// Err is the underlying error
	Err error
}

// Error types.
const (
	ErrorTypeNetwork   = "network"
	ErrorTypeAPI       = "api"
	ErrorTypeRateLimit = "rate_limit"
	ErrorTypeTimeout   = "timeout"
	ErrorTypeParse     = "parse"
)

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("adapter %s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("adapter %s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a retry of the same request may succeed.
// Network failures, timeouts, rate limits and server-side errors are
// transient; any other client error is final.
func (e *AdapterError) Retryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	case ErrorTypeAPI:
		return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
	}
	return false
}

// IsRetryable reports whether err is a transient adapter error.
func IsRetryable(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return false
}

// NewNetworkError creates a network error.
func NewNetworkError(err error) *AdapterError {
	return &AdapterError{
		Type:    ErrorTypeNetwork,
		Message: "Failed to reach the model API. Check your network connection.",
		Err:     err,
	}
}

// NewAPIError creates an API error with status code.
func NewAPIError(code int, message string) *AdapterError {
	typ := ErrorTypeAPI
	if code == http.StatusTooManyRequests {
		typ = ErrorTypeRateLimit
	}
	return &AdapterError{
		Type:    typ,
		Code:    code,
		Message: fmt.Sprintf("model API error: %s", message),
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *AdapterError {
	return &AdapterError{
		Type:    ErrorTypeTimeout,
		Message: "Request timed out. The model may be under heavy load.",
		Err:     err,
	}
}

// NewParseError creates a parse error.
func NewParseError(content string, err error) *AdapterError {
	return &AdapterError{
		Type:    ErrorTypeParse,
		Message: fmt.Sprintf("Failed to parse model output: %s", truncate(content, 200)),
		Err:     err,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
