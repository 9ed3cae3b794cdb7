// Package errors provides error handling for entityhub.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Marking errors with a sentinel while keeping the original cause
//
// Usage:
//
//	// Wrap a backend failure; both the cause and ErrStorage stay matchable
//	if err := tx.Commit(); err != nil {
//	    return errors.WrapStorage(err, "commit subgraph %s", id)
//	}
//
//	// Check errors
//	if errors.IsNotFoundError(err) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails

	GetReportableStackTrace = crdb.GetReportableStackTrace
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors of the entity store.
// Use these with errors.Is() for type-safe error checking.
var (
	// ErrInvalidArgument indicates an empty or missing id, field id or value
	// where one is required. Raised before any I/O.
	ErrInvalidArgument = New("invalid argument")

	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = New("not found")

	// ErrInvalidQuery indicates a malformed FieldQuery detected at compile time
	ErrInvalidQuery = New("invalid query")

	// ErrStorage indicates the backing graph store failed. The original cause
	// is always wrapped.
	ErrStorage = New("storage failure")

	// ErrClosed indicates the yard was deactivated
	ErrClosed = New("yard is closed")

	// ErrConfiguration indicates an invalid configuration or an attempt to
	// reconfigure a read-only component
	ErrConfiguration = New("configuration error")

	// ErrReadOnly indicates a write against a read-only graph
	ErrReadOnly = New("read-only")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidArgument checks if an error is or wraps ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	return err != nil && Is(err, ErrInvalidArgument)
}

// IsInvalidQuery checks if an error is or wraps ErrInvalidQuery
func IsInvalidQuery(err error) bool {
	return err != nil && Is(err, ErrInvalidQuery)
}

// IsStorageError checks if an error is or wraps ErrStorage
func IsStorageError(err error) bool {
	return err != nil && Is(err, ErrStorage)
}

// IsClosedError checks if an error is or wraps ErrClosed
func IsClosedError(err error) bool {
	return err != nil && Is(err, ErrClosed)
}

// IsConfigurationError checks if an error is or wraps ErrConfiguration
func IsConfigurationError(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// NewInvalidArgumentError creates an invalid-argument error with a formatted message
func NewInvalidArgumentError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidArgument, Newf(format, args...).Error())
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidQueryError creates an invalid-query error with a formatted message
func NewInvalidQueryError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidQuery, Newf(format, args...).Error())
}

// NewClosedError creates a closed error naming the yard
func NewClosedError(yardID string) error {
	return Wrapf(ErrClosed, "yard %q", yardID)
}

// NewConfigurationError creates a configuration error with a formatted message
func NewConfigurationError(format string, args ...interface{}) error {
	return Wrap(ErrConfiguration, Newf(format, args...).Error())
}

// WrapStorage wraps a backend failure with context and marks it as ErrStorage.
// Both errors.Is(err, ErrStorage) and errors.Is(err, cause) hold afterwards.
// Returns nil when cause is nil.
func WrapStorage(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	if Is(cause, ErrStorage) {
		return Wrapf(cause, format, args...)
	}
	return Mark(Wrapf(cause, format, args...), ErrStorage)
}
