// Package session serializes access to an embedded SQL database.
//
// ARCHITECTURE:
//
// Single worker, FIFO queue:
// Every public operation is stamped with a sequence number and appended to
// an unbounded queue while holding the session lock, so queue order equals
// issue order. One goroutine per session drains the queue and is the only
// code that touches the connection. Statement building and result handling
// happen on the caller's goroutine.
//
// Futures:
// Operations return a *Future immediately. Wait(ctx) gives up waiting but
// does not cancel: a queued operation always runs.
//
// Commit per write:
// The connection runs with auto-commit off. Insert, Update, Delete, Execute,
// SetVersion and Do commit before resolving; on error or panic they roll
// back, log at Error, and resolve with a *StorageError. The next queued
// operation runs normally.
//
// Close:
// Close is itself queued, behind everything already requested. After Close
// is called every new operation fails at once with ErrSessionClosed.
//
// Registry holds one session per database name for callers that share
// databases; DeleteDatabase closes the session before removing the file.
package session
