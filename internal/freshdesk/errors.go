package freshdesk

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnauthorized is returned when the API key is rejected
	ErrUnauthorized = errors.New("freshdesk authentication failed")

	// ErrForbidden is returned when the API key lacks permission
	ErrForbidden = errors.New("freshdesk access forbidden")

	// ErrRateLimited is returned when the API quota is exhausted (HTTP 429)
	ErrRateLimited = errors.New("freshdesk rate limit exceeded")

	// ErrNotFound is returned when a ticket or attachment no longer exists
	// upstream, including expired attachment download URLs
	ErrNotFound = errors.New("freshdesk resource not found")

	// ErrServerError is returned when Freshdesk returns a 5xx response
	ErrServerError = errors.New("freshdesk server error")
)

// APIError wraps a Freshdesk API failure with request context.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
	Method     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("freshdesk api error: %s (status: %d, method: %s, url: %s): %v",
			e.Message, e.StatusCode, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("freshdesk api error: %s (status: %d, method: %s, url: %s)",
		e.Message, e.StatusCode, e.Method, e.URL)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// newAPIError builds an APIError for a non-2xx response, mapping the status
// code to a sentinel error so callers can classify with errors.Is.
func newAPIError(statusCode int, message, method, url string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		URL:        url,
		Method:     method,
		Err:        mapErrorType(statusCode),
	}
}

func mapErrorType(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return ErrServerError
	default:
		return nil
	}
}

// IsAuthError checks if an error is an authentication or permission error.
// Auth errors are setup-level: they abort the run.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryableError reports whether a request is worth retrying: rate limits,
// server errors, and transport-level failures.
func IsRetryableError(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerError) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	// Connection resets, timeouts, DNS hiccups
	var netErr net.Error
	return errors.As(err, &netErr)
}
