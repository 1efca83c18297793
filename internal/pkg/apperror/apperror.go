// Package apperror defines the error taxonomy shared across services.
// Handlers map these to HTTP responses without leaking internal detail.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel categories. Wrap with Wrap/Validation so errors.Is works
// through the chain.
var (
	// ErrValidation marks malformed input, surfaced to the caller with
	// the specific reason.
	ErrValidation = errors.New("validation error")

	// ErrNotInitialized marks a query against a service whose load
	// phase has not completed — distinct from "no results".
	ErrNotInitialized = errors.New("service not initialized")

	// ErrDependencyTimeout marks an external call that exceeded its
	// budget; callers degrade to a fallback, never fail the process.
	ErrDependencyTimeout = errors.New("dependency timeout")

	// ErrDependencyUnavailable marks an unreachable dependency; fatal to
	// the specific request, surfaced as a generic failure message.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrCorruptState marks data that cannot be trusted (index dimension
	// mismatch, undecodable session record). Treated as data loss for
	// that key, never process-fatal.
	ErrCorruptState = errors.New("corrupt state")
)

// Wrap annotates err with a taxonomy category.
func Wrap(category error, err error) error {
	if err == nil {
		return category
	}
	return fmt.Errorf("%w: %w", category, err)
}

// Validation builds a user-facing validation error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
