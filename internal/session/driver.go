package session

import "context"

// Driver opens connections to named databases.
type Driver interface {
	// Open connects to the named database, creating it if needed.
	Open(ctx context.Context, name string) (Conn, error)

	// Remove deletes the named database's backing storage.
	Remove(name string) error
}

// Conn is one long-lived database connection. Auto-commit is off: the first
// Exec begins a transaction that stays open until Commit or Rollback.
//
// A Conn is only ever used from the session worker goroutine.
type Conn interface {
	Query(ctx context.Context, query string, args ...any) (*Cursor, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit() error
	Rollback() error

	// UserVersion and SetUserVersion read and write the persisted schema
	// version integer.
	UserVersion(ctx context.Context) (int, error)
	SetUserVersion(ctx context.Context, v int) error

	Close() error
}
