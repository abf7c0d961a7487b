package session

import (
	"context"

	"github.com/roach88/fieldsync/internal/querysql"
)

// Unit is the connection as seen from inside one queued operation (a Do
// callback or a Schema hook). It is only valid until the callback returns.
type Unit struct {
	conn Conn
}

// Exec runs a built statement.
func (u Unit) Exec(ctx context.Context, stmt querysql.Statement) (int64, error) {
	return u.conn.Exec(ctx, stmt.SQL, stmt.Args...)
}

// Query runs a built statement that returns rows.
func (u Unit) Query(ctx context.Context, stmt querysql.Statement) (*Cursor, error) {
	return u.conn.Query(ctx, stmt.SQL, stmt.Args...)
}

// ExecSQL runs hand-written SQL.
func (u Unit) ExecSQL(ctx context.Context, sqlText string, args ...any) (int64, error) {
	return u.conn.Exec(ctx, sqlText, args...)
}

// QuerySQL runs hand-written SQL that returns rows.
func (u Unit) QuerySQL(ctx context.Context, sqlText string, args ...any) (*Cursor, error) {
	return u.conn.Query(ctx, sqlText, args...)
}
