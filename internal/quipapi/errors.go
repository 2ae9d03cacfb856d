package quipapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Class buckets every API failure into the category that drives the
// engine's retry and abort decisions.
type Class int

const (
	// ClassUnauthorized means the credential is invalid, expired or lacks
	// access. Never retryable; no subsequent call can succeed.
	ClassUnauthorized Class = iota
	// ClassNotFound means the referenced id no longer exists. Never
	// retryable, scoped to that one item.
	ClassNotFound
	// ClassRateLimited means the server asked us to back off (429).
	ClassRateLimited
	// ClassTransient covers 5xx responses, timeouts and transport errors.
	ClassTransient
	// ClassUnknown is everything else.
	ClassUnknown
)

func (c Class) String() string {
	switch c {
	case ClassUnauthorized:
		return "unauthorized"
	case ClassNotFound:
		return "not found"
	case ClassRateLimited:
		return "rate limited"
	case ClassTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// APIError is the typed outcome of a single failed API call.
type APIError struct {
	Class  Class
	Status int
	Op     string
	ID     string
	cause  error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("quipapi: %s %s: %s (status %d)", e.Op, e.ID, e.Class, e.Status)
	}
	if e.cause != nil {
		return fmt.Sprintf("quipapi: %s %s: %s: %v", e.Op, e.ID, e.Class, e.cause)
	}
	return fmt.Sprintf("quipapi: %s %s: %s", e.Op, e.ID, e.Class)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Retryable reports whether another attempt at the same call can succeed.
func (e *APIError) Retryable() bool {
	return e.Class == ClassRateLimited || e.Class == ClassTransient
}

// IsRetryable reports whether err is an API failure worth another attempt.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

// IsUnauthorized reports whether err means the whole run should abort.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ClassUnauthorized
}

func classifyStatus(status int) Class {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ClassUnauthorized
	case status == http.StatusNotFound:
		return ClassNotFound
	case status == http.StatusTooManyRequests:
		return ClassRateLimited
	case status >= 500:
		return ClassTransient
	default:
		return ClassUnknown
	}
}
