package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriver opens SQLite databases through mattn/go-sqlite3. Database
// names are file paths; ":memory:" opens a private in-memory database.
type SQLiteDriver struct{}

// Open connects to path and applies the connection pragmas:
//   - WAL journal (file databases only)
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - foreign key enforcement
func (SQLiteDriver) Open(ctx context.Context, path string) (Conn, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One physical connection: every statement runs on the same handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	c := &sqliteConn{db: db, conn: conn}
	if err := c.applyPragmas(ctx, isMemory(path)); err != nil {
		c.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return c, nil
}

// Remove deletes the database file and its WAL side files. A missing file
// is not an error.
func (SQLiteDriver) Remove(path string) error {
	if isMemory(path) {
		return nil
	}
	var errs []error
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}

// sqliteConn pins one *sql.Conn. Exec lazily begins a transaction that the
// session ends with Commit or Rollback.
type sqliteConn struct {
	db   *sql.DB
	conn *sql.Conn
	tx   *sql.Tx
}

func (c *sqliteConn) applyPragmas(ctx context.Context, memory bool) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !memory {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := c.conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (c *sqliteConn) Query(ctx context.Context, query string, args ...any) (*Cursor, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if c.tx != nil {
		rows, err = c.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = c.conn.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return readRows(rows)
}

func readRows(rows *sql.Rows) (*Cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return NewCursor(cols, out), nil
}

func (c *sqliteConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if c.tx == nil {
		tx, err := c.conn.BeginTx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("begin transaction: %w", err)
		}
		c.tx = tx
	}
	res, err := c.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (c *sqliteConn) Commit() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return tx.Commit()
}

func (c *sqliteConn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (c *sqliteConn) UserVersion(ctx context.Context) (int, error) {
	cur, err := c.Query(ctx, "PRAGMA user_version")
	if err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	if !cur.Next() {
		return 0, errors.New("get user_version: no row")
	}
	var v int
	if err := cur.Scan(&v); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return v, nil
}

func (c *sqliteConn) SetUserVersion(ctx context.Context, v int) error {
	if v < 0 {
		return fmt.Errorf("set user_version: negative version %d", v)
	}
	if _, err := c.Exec(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (c *sqliteConn) Close() error {
	var errs []error
	if err := c.Rollback(); err != nil {
		errs = append(errs, err)
	}
	if err := c.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
