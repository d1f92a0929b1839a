// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound covers both an unknown share id and a wrong delete key.
	ErrNotFound      = errors.New("not found or wrong key")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrServerBusy    = errors.New("server busy")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrNetwork       = errors.New("network failure")
	ErrReadOnly      = errors.New("chart is read-only")
	// ErrStorageUnavailable means the local autosave could not be read, so
	// writing it would risk replacing a chart that was never loaded.
	ErrStorageUnavailable = errors.New("local storage unavailable")
)

// ValidationError names the offending field of a malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRateLimited, e.Scope)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// IsTransient reports whether err is an infrastructure failure the user may
// retry by hand.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServerBusy) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrNetwork)
}
