package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents different types of errors that can occur during a run
type ErrorType string

const (
	ErrorTypeDiscoveryUnavailable ErrorType = "discovery_unavailable"
	ErrorTypeEmptyResult          ErrorType = "empty_result"
	ErrorTypeNetwork              ErrorType = "network"
	ErrorTypeHTTPStatus           ErrorType = "http_status"
	ErrorTypeCORS                 ErrorType = "cors"
	ErrorTypeDecode               ErrorType = "decode"
	ErrorTypeEncode               ErrorType = "encode"
	ErrorTypeArchive              ErrorType = "archive"
	ErrorTypeSave                 ErrorType = "save"
	ErrorTypeRateLimit            ErrorType = "rate_limit"
	ErrorTypeNotFound             ErrorType = "not_found"
	ErrorTypeServerError          ErrorType = "server_error"
	ErrorTypeTooLarge             ErrorType = "too_large"
	ErrorTypeUnknown              ErrorType = "unknown"
)

// Error represents a pipeline error with type information
type Error struct {
	Type       ErrorType
	Message    string
	Code       int
	Err        error
	// RetryAfter is the server's requested wait before the next attempt
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, err error, msg string) *Error {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &Error{Type: t, Message: msg, Err: err}
}

// FromStatus creates an error for a non-2xx HTTP status code
func FromStatus(code int, url string) *Error {
	t := ErrorTypeHTTPStatus
	switch {
	case code == 404:
		t = ErrorTypeNotFound
	case code == 429:
		t = ErrorTypeRateLimit
	case code >= 500:
		t = ErrorTypeServerError
	}
	return &Error{Type: t, Message: fmt.Sprintf("HTTP %d for %s", code, url), Code: code}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if err is not typed
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type anywhere in its chain
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
