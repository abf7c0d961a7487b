package session

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes session errors.
type ErrorCode string

const (
	// ErrCodeStorageFailure indicates the database driver failed an operation.
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"

	// ErrCodeSessionClosed indicates an operation requested after Close was queued.
	ErrCodeSessionClosed ErrorCode = "SESSION_CLOSED"
)

// ErrSessionClosed is returned for every operation requested after Close.
var ErrSessionClosed = errors.New(string(ErrCodeSessionClosed) + ": session is closed")

// errNotOpen is the cause when a queued operation finds no connection,
// which happens after a failed open.
var errNotOpen = errors.New("database is not open")

// StorageError wraps a driver failure with the operation that raised it.
// The connection stays usable after a StorageError.
type StorageError struct {
	// Op is the session operation, e.g. "insert" or "rawQuery".
	Op string

	// Seq is the queue position of the failed operation.
	Seq int64

	// SQL is the statement text, when there was one.
	SQL string

	// Err is the underlying driver error.
	Err error
}

func (e *StorageError) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("%s: %s (seq=%d, sql=%q): %v", ErrCodeStorageFailure, e.Op, e.Seq, e.SQL, e.Err)
	}
	return fmt.Sprintf("%s: %s (seq=%d): %v", ErrCodeStorageFailure, e.Op, e.Seq, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageFailure returns true if err is or wraps a StorageError.
func IsStorageFailure(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsSessionClosed returns true if err is or wraps ErrSessionClosed.
func IsSessionClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}

// PanicError carries a value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in queued task: %v", e.Value)
}
