package sharepoint

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrUnauthorized is returned when credentials are rejected or lack
	// permission on the site
	ErrUnauthorized = errors.New("sharepoint authentication failed")

	// ErrNotFound is returned when a folder or file does not exist
	ErrNotFound = errors.New("sharepoint resource not found")

	// ErrQuotaExceeded is returned when the site storage quota rejects an
	// upload. Fatal for the affected file only; the run continues.
	ErrQuotaExceeded = errors.New("sharepoint storage quota exceeded")

	// ErrServerError is returned for 5xx responses
	ErrServerError = errors.New("sharepoint server error")
)

// APIError wraps a SharePoint failure with request context.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
	Operation  string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sharepoint error: %s (status: %d, operation: %s, path: %s): %v",
			e.Message, e.StatusCode, e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("sharepoint error: %s (status: %d, operation: %s, path: %s)",
		e.Message, e.StatusCode, e.Operation, e.Path)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// wrapError classifies a gosip error by the status code embedded in its
// message. gosip surfaces HTTP failures as plain errors, so classification
// works the same way the raw response text does.
func wrapError(err error, operation, path string) error {
	if err == nil {
		return nil
	}

	statusCode := extractStatusCode(err)
	return &APIError{
		StatusCode: statusCode,
		Message:    err.Error(),
		Path:       path,
		Operation:  operation,
		Err:        mapErrorType(statusCode, err),
	}
}

func mapErrorType(statusCode int, err error) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusInsufficientStorage:
		return ErrQuotaExceeded
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return ErrServerError
	}

	// Quota failures sometimes come back as a plain message rather than 507
	if strings.Contains(strings.ToLower(err.Error()), "quota") {
		return ErrQuotaExceeded
	}
	return nil
}

// statusLineRE matches a known HTTP status code anchored the way it appears
// in a status line: a standalone code token followed by the status text.
// Anchoring keeps incidental digits (ticket ids, path segments) from
// classifying; the leftmost match wins, so a message quoting several codes
// classifies deterministically.
var statusLineRE = regexp.MustCompile(`\b(401|403|404|429|500|502|503|504|507)\s+[A-Za-z]`)

// extractStatusCode pulls an HTTP status code out of an error message.
// SharePoint fronts return HTML error pages for some failures, so the code
// is matched on the status line text.
func extractStatusCode(err error) int {
	if err == nil {
		return 0
	}

	m := statusLineRE.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

// IsAuthError checks if an error is an authentication or permission error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsQuotaError checks if an error is a storage quota error.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
