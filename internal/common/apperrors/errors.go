// Package apperrors provides the coded error taxonomy shared by the
// search pipeline and the conversation layer.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeInvalidInput marks user input that failed validation for the
	// current conversation step. The step is re-prompted, never advanced.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeAddressNotFound means the geocoder returned zero candidates.
	CodeAddressNotFound Code = "ADDRESS_NOT_FOUND"

	// CodeAddressAmbiguous means the geocoder returned more than one
	// candidate; the first one is used and the caller is warned.
	CodeAddressAmbiguous Code = "ADDRESS_AMBIGUOUS"

	// CodeDirectoryUnavailable means the venue directory call failed.
	// Fatal to the whole search.
	CodeDirectoryUnavailable Code = "DIRECTORY_UNAVAILABLE"

	// CodeAvailabilityFetchFailed means one (tenant, date) availability
	// call failed. Never fatal; the pair contributes no results.
	CodeAvailabilityFetchFailed Code = "AVAILABILITY_FETCH_FAILED"
)

// Error is a structured application error carrying a stable code.
type Error struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes errors.Is(err, &Error{Code: X}) match on code alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the Code from err, or "" if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

func newError(code Code, message, details string, retryable bool, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidInput creates a non-retryable validation error for a
// conversation step.
func NewInvalidInput(details string) *Error {
	return newError(CodeInvalidInput, "invalid input for the current step", details, false, nil)
}

// NewAddressNotFound creates an error for a geocoding query with no matches.
func NewAddressNotFound(query string) *Error {
	return newError(CodeAddressNotFound, "no coordinates found for address", fmt.Sprintf("query: %s", query), false, nil)
}

// NewAddressAmbiguous flags a geocoding query with multiple matches. The
// result is still usable; this is a warning carried alongside it.
func NewAddressAmbiguous(query, picked string) *Error {
	return newError(CodeAddressAmbiguous, "address matched more than one place", fmt.Sprintf("query: %s, using: %s", query, picked), false, nil)
}

// NewDirectoryUnavailable wraps a failed venue directory call.
func NewDirectoryUnavailable(err error) *Error {
	return newError(CodeDirectoryUnavailable, "venue directory is unreachable", err.Error(), true, err)
}

// NewAvailabilityFetchFailed wraps a failed availability call for one
// (tenant, date) pair.
func NewAvailabilityFetchFailed(tenantID, date string, err error) *Error {
	return newError(CodeAvailabilityFetchFailed, "availability fetch failed",
		fmt.Sprintf("tenant: %s, date: %s, error: %s", tenantID, date, err.Error()), true, err)
}
