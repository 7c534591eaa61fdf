// Package errors provides standardized domain errors with codes for the
// Dishplay server.
//
// Usage:
//
//	// In services - return typed errors
//	if opts.SimilarityThreshold > 1 {
//	    return errors.Configurationf("similarity threshold %f out of range", t)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrCacheUnavailable) {
//	    // degrade to uncached resolution
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeConfiguration    Code = "CONFIGURATION"
	CodeEmbedding        Code = "EMBEDDING"
	CodeProvider         Code = "PROVIDER"
	CodeCacheUnavailable Code = "CACHE_UNAVAILABLE"
	CodeValidation       Code = "VALIDATION"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInternal         Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeProvider, CodeEmbedding:
		return http.StatusBadGateway
	case CodeCacheUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrConfiguration    = &Error{Code: CodeConfiguration, Message: "invalid configuration"}
	ErrEmbedding        = &Error{Code: CodeEmbedding, Message: "embedding failed"}
	ErrCacheUnavailable = &Error{Code: CodeCacheUnavailable, Message: "result cache unavailable"}
	ErrValidation       = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// Configuration creates a configuration error. Configuration errors are fatal
// at startup and never returned per-request.
func Configuration(msg string) *Error {
	return &Error{Code: CodeConfiguration, Message: msg}
}

// Configurationf creates a configuration error with formatted message.
func Configurationf(format string, args ...any) *Error {
	return &Error{Code: CodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Embedding creates an embedding error. An embedding error aborts the catalog
// tier for one request only; the cascade proceeds as if the catalog yielded
// nothing.
func Embedding(msg string) *Error {
	return &Error{Code: CodeEmbedding, Message: msg}
}

// CacheUnavailable creates a cache unavailability error. The cascade degrades
// to uncached, uncoalesced resolution rather than failing the request.
func CacheUnavailable(msg string) *Error {
	return &Error{Code: CodeCacheUnavailable, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// ProviderError reports a tier provider failure (web search or generation).
// Transient failures (timeouts, 5xx, rate limits) may be retried; permanent
// failures (auth, malformed request) must not be.
type ProviderError struct {
	Provider  string
	Transient bool
	// RetryAfter carries the provider's retry-after hint for rate-limit
	// responses; zero when the provider gave none.
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("provider %s: %s failure: %v", e.Provider, kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TransientProvider creates a retryable provider error.
func TransientProvider(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Transient: true, Err: err}
}

// PermanentProvider creates a non-retryable provider error.
func PermanentProvider(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Transient: false, Err: err}
}

// RateLimited creates a transient provider error carrying a retry-after hint.
func RateLimited(provider string, retryAfter time.Duration, err error) *ProviderError {
	return &ProviderError{Provider: provider, Transient: true, RetryAfter: retryAfter, Err: err}
}

// IsTransient reports whether err is a failure that may be retried. Unknown
// errors (network failures wrapped by net/http) are treated as transient,
// matching the timeouts they usually represent.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	var de *Error
	if errors.As(err, &de) {
		return false
	}
	return true
}

// RetryAfterHint extracts the retry-after hint from a provider error chain,
// or zero if none was given.
func RetryAfterHint(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}
