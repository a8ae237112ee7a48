package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind enumerates every failure classification the pipeline produces.
// Classification happens once, at the point of failure; downstream code
// switches on Kind and never inspects message text.
type ErrorKind string

const (
	KindAuthRequired       ErrorKind = "AUTH_REQUIRED"
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindServerError        ErrorKind = "SERVER_ERROR"
	KindNetworkError       ErrorKind = "NETWORK_ERROR"
	KindChannelInvalidated ErrorKind = "CHANNEL_INVALIDATED"
)

// ClassifiedError is a pipeline failure carrying an explicit kind and a
// human-readable hint for the feedback surface.
type ClassifiedError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Hint    string    `json:"hint"`
	cause   error
}

func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the classification onto an HTTP status for the API surface.
func (e *ClassifiedError) HTTPStatus() int {
	switch e.Kind {
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindServerError:
		return http.StatusBadGateway
	case KindNetworkError:
		return http.StatusServiceUnavailable
	case KindChannelInvalidated:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func NewAuthRequiredError(message string) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindAuthRequired,
		Message: message,
		Hint:    "Please sign in to run analyses.",
	}
}

func NewRateLimitedError(message string) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindRateLimited,
		Message: message,
		Hint:    "The analysis service is rate limiting requests. Try again shortly.",
	}
}

func NewServerError(message string) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindServerError,
		Message: message,
		Hint:    "The analysis service had an issue. Try again later.",
	}
}

func NewNetworkError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindNetworkError,
		Message: message,
		Hint:    "Couldn't reach the analysis service. Check your connection.",
		cause:   cause,
	}
}

func NewChannelInvalidatedError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindChannelInvalidated,
		Message: message,
		Hint:    "The page connection was lost. Reload the page to continue.",
		cause:   cause,
	}
}

// ClassifyStatus classifies a well-formed backend error response by status
// code. Responses that never arrived are classified at the transport call
// site with NewNetworkError instead.
func ClassifyStatus(status int) *ClassifiedError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAuthRequiredError(fmt.Sprintf("backend rejected credentials (status %d)", status))
	case status == http.StatusTooManyRequests:
		return NewRateLimitedError("backend returned 429")
	case status >= 500:
		return NewServerError(fmt.Sprintf("backend returned status %d", status))
	default:
		return NewServerError(fmt.Sprintf("backend returned unexpected status %d", status))
	}
}

// AsClassified extracts a ClassifiedError from an error chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var cerr *ClassifiedError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}

// KindOf returns the classification of err, or false when err carries none.
func KindOf(err error) (ErrorKind, bool) {
	if cerr, ok := AsClassified(err); ok {
		return cerr.Kind, true
	}
	return "", false
}
