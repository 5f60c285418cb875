package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrInvalidConfig is returned by New when the configuration cannot produce a working client.
	ErrInvalidConfig = errors.New("invalid client config")
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents non-error statuses the caller did not ask for
	// (redirects left unfollowed, 1xx, non-200 2xx on JSON reads).
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// APIError represents a request that completed with a status the caller cannot use.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Method     string
	URL        string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s error (status %d): %s: %v",
			e.Method, e.URL, e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s error (status %d): %s",
		e.Method, e.URL, e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is an *APIError carrying the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// classifyStatus maps a status code to an ErrorClass. Success codes map to "".
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
