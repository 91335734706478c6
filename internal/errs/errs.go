// Package errs contains the error taxonomy used across layers for stable error mapping.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Category classifies a failure for callers that branch on error kind
// (UI alerts, session teardown, retry decisions).
type Category string

const (
	CategoryNetwork    Category = "NETWORK_ERROR"
	CategoryAuth       Category = "AUTH_ERROR"
	CategoryForbidden  Category = "FORBIDDEN_ERROR"
	CategoryNotFound   Category = "NOT_FOUND_ERROR"
	CategoryServer     Category = "SERVER_ERROR"
	CategoryTimeout    Category = "TIMEOUT_ERROR"
	CategoryValidation Category = "VALIDATION_ERROR"
	CategoryUnknown    Category = "UNKNOWN_ERROR"
)

// Common sentinels across client layers.
var (
	// ErrMissingToken indicates a protected call was attempted with no stored token.
	ErrMissingToken = errors.New("missing authentication token")

	// ErrUnauthorized indicates the backend rejected the credentials (401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoUserID indicates no user id is stored for the current session.
	ErrNoUserID = errors.New("user id not found")
)

// defaultMessages are the user-facing fallbacks per category.
var defaultMessages = map[Category]string{
	CategoryNetwork:    "network connection failed, check your internet connection",
	CategoryAuth:       "authentication failed, please login again",
	CategoryForbidden:  "you do not have permission to access this resource",
	CategoryNotFound:   "the requested resource was not found",
	CategoryServer:     "server error occurred, please try again later",
	CategoryTimeout:    "request timed out, please try again",
	CategoryValidation: "please check your input and try again",
	CategoryUnknown:    "an unexpected error occurred, please try again",
}

// APIError is the normalized error record produced by the HTTP layer and
// re-thrown (wrapped) by the domain API modules.
type APIError struct {
	Category   Category
	Message    string
	StatusCode int       // 0 when no response was received
	Details    string    // response body excerpt, field errors, etc.
	Timestamp  time.Time // when the error was normalized
	Err        error     // underlying cause, may be nil
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// New builds an APIError with the category's default message unless msg is set.
func New(cat Category, msg string) *APIError {
	if msg == "" {
		msg = defaultMessages[cat]
	}
	return &APIError{Category: cat, Message: msg, Timestamp: time.Now()}
}

// Wrap attaches an underlying cause to a fresh APIError.
func Wrap(cat Category, msg string, err error) *APIError {
	e := New(cat, msg)
	e.Err = err
	return e
}

// FromStatus maps an HTTP status code to an APIError. Unrecognized 4xx fall
// into the server category, same as 5xx.
func FromStatus(status int, body string) *APIError {
	var cat Category
	switch {
	case status == http.StatusUnauthorized:
		cat = CategoryAuth
	case status == http.StatusForbidden:
		cat = CategoryForbidden
	case status == http.StatusNotFound:
		cat = CategoryNotFound
	default:
		cat = CategoryServer
	}
	e := New(cat, "")
	e.StatusCode = status
	e.Details = body
	if cat == CategoryAuth {
		e.Err = ErrUnauthorized
	}
	return e
}

// CategoryOf extracts the category from any error chain; plain errors are
// classified by probing for net/context failure modes.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	if errors.Is(err, ErrMissingToken) || errors.Is(err, ErrUnauthorized) {
		return CategoryAuth
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}
	return CategoryUnknown
}

// StatusOf returns the HTTP status carried by the chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsAuth reports whether the error should force a return to the
// unauthenticated state.
func IsAuth(err error) bool { return CategoryOf(err) == CategoryAuth }

// IsRetryable reports whether a failure is transient: network trouble,
// timeouts, 5xx and 429. Every other 4xx is final.
func IsRetryable(err error) bool {
	switch CategoryOf(err) {
	case CategoryNetwork, CategoryTimeout:
		return true
	case CategoryServer:
		status := StatusOf(err)
		return status == 0 || status == http.StatusTooManyRequests || status >= 500
	default:
		return false
	}
}
