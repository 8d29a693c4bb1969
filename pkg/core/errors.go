// Package core provides the main Memory Pulse client: configuration,
// typed store helpers, recall orchestration, and lifecycle management.
package core

import (
	"errors"
	"fmt"

	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a required memory, relation, or group id
	// does not exist.
	ErrNotFound = storage.ErrNotFound

	// ErrValidation indicates malformed input: a missing required field,
	// an unknown memory type, or a vector dimension mismatch.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedCapability indicates that the configured backend does
	// not implement an optional call (stats, groups, relations).
	ErrUnsupportedCapability = errors.New("capability not supported by backend")

	// ErrStorageFailure indicates an underlying I/O or database error.
	ErrStorageFailure = errors.New("storage operation failed")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// MemoryError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "Store",
//	    Err: ErrValidation,
//	}
//	// Error() returns: "mempulse: Store: validation failed"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "mempulse: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("mempulse: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("Store", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "Store", "Recall", "Update")
//   - err: The underlying error to wrap
//
// Returns a MemoryError, or nil if err is nil.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}
