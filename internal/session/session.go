package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/fieldsync/internal/queryir"
	"github.com/roach88/fieldsync/internal/querysql"
)

// Session serializes every operation against one database connection.
//
// Operations return immediately with a Future. They are stamped with a
// sequence number and queued; a single worker goroutine runs them one at a
// time in that order. Writes commit before their Future resolves and roll
// back on failure. A failed operation never stalls the ones behind it.
type Session struct {
	name   string
	driver Driver
	logger *slog.Logger
	schema *Schema
	clock  Sequencer

	mu      sync.Mutex // guards closing and makes seq order match queue order
	closing bool
	queue   *taskQueue

	conn    Conn // owned by the worker goroutine
	open    atomic.Bool
	opened  *Future[struct{}]
	stopped chan struct{}
}

// Open starts a session for name and waits until the connection is
// established and any schema work has committed.
func Open(ctx context.Context, driver Driver, name string, opts ...Option) (*Session, error) {
	s := start(driver, name, opts...)
	if _, err := s.opened.Wait(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// start launches the worker and queues the open as operation #1. Later
// calls may be queued right away; they run after the open.
func start(driver Driver, name string, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		name:    name,
		driver:  driver,
		logger:  cfg.logger.With("db", name),
		schema:  cfg.schema,
		clock:   cfg.clock,
		queue:   newTaskQueue(),
		stopped: make(chan struct{}),
	}
	go s.run()

	s.opened = enqueue(s, "open", "", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.connect(ctx)
	})
	return s
}

func (s *Session) run() {
	defer close(s.stopped)
	ctx := context.Background()
	s.logger.Debug("session worker started")
	for {
		t, ok := s.queue.Dequeue()
		if !ok {
			s.logger.Debug("session worker stopped")
			return
		}
		s.logger.Debug("run", "op", t.op, "seq", t.seq)
		t.run(ctx)
	}
}

func (s *Session) connect(ctx context.Context) error {
	conn, err := s.driver.Open(ctx, s.name)
	if err != nil {
		return err
	}
	if s.schema != nil {
		if err := migrate(ctx, conn, *s.schema); err != nil {
			_ = conn.Rollback()
			_ = conn.Close()
			return err
		}
	}
	s.conn = conn
	s.open.Store(true)
	return nil
}

func migrate(ctx context.Context, conn Conn, schema Schema) error {
	have, err := conn.UserVersion(ctx)
	if err != nil {
		return err
	}

	u := Unit{conn: conn}
	switch {
	case have == schema.Version:
		return nil
	case have > schema.Version:
		return fmt.Errorf("database version %d is newer than schema version %d", have, schema.Version)
	case have == 0:
		if schema.OnCreate != nil {
			if err := schema.OnCreate(ctx, u); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
	default:
		if schema.OnUpgrade != nil {
			if err := schema.OnUpgrade(ctx, u, have, schema.Version); err != nil {
				return fmt.Errorf("upgrade schema from %d to %d: %w", have, schema.Version, err)
			}
		}
	}

	if err := conn.SetUserVersion(ctx, schema.Version); err != nil {
		return err
	}
	if err := conn.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// enqueue stamps fn with the next sequence number and queues it. Any error
// (or panic) becomes a StorageError on the Future; the queue moves on.
func enqueue[T any](s *Session, op, sqlText string, fn func(ctx context.Context) (T, error)) *Future[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return failed[T](ErrSessionClosed)
	}

	seq := s.clock.Next()
	f := newFuture[T](seq)
	s.queue.Enqueue(task{seq: seq, op: op, run: func(ctx context.Context) {
		v, err := guard(ctx, fn)
		if err != nil {
			var zero T
			v, err = zero, s.failure(seq, op, sqlText, err)
		}
		f.resolve(v, err)
	}})
	return f
}

// submit queues fn against the open connection. Writes are committed on
// success and rolled back on error or panic.
func submit[T any](s *Session, op, sqlText string, write bool, fn func(ctx context.Context, c Conn) (T, error)) *Future[T] {
	return enqueue(s, op, sqlText, func(ctx context.Context) (v T, err error) {
		conn := s.conn
		if conn == nil {
			return v, errNotOpen
		}
		if !write {
			return fn(ctx, conn)
		}

		committed := false
		defer func() {
			if committed {
				return
			}
			if rbErr := conn.Rollback(); rbErr != nil {
				s.logger.Warn("rollback failed", "op", op, "error", rbErr)
			}
		}()

		v, err = fn(ctx, conn)
		if err != nil {
			var zero T
			return zero, err
		}
		if err := conn.Commit(); err != nil {
			var zero T
			return zero, fmt.Errorf("commit: %w", err)
		}
		committed = true
		return v, nil
	})
}

func guard[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, &PanicError{Value: r}
		}
	}()
	return fn(ctx)
}

func (s *Session) failure(seq int64, op, sqlText string, err error) error {
	if errors.Is(err, ErrSessionClosed) {
		return err
	}
	s.logger.Error("storage operation failed", "op", op, "seq", seq, "sql", sqlText, "error", err)
	return &StorageError{Op: op, Seq: seq, SQL: sqlText, Err: err}
}

// Name returns the database name the session was opened with.
func (s *Session) Name() string { return s.name }

// IsOpen reports whether the connection is established and Close has not
// been requested.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closing && s.open.Load()
}

// Pending returns the number of queued operations not yet started.
func (s *Session) Pending() int { return s.queue.Len() }

// Done is closed once the worker has drained the queue after Close.
func (s *Session) Done() <-chan struct{} { return s.stopped }

// Query runs a SELECT built from sel.
func (s *Session) Query(sel querysql.Select) *Future[*Cursor] {
	stmt, err := sel.Build()
	if err != nil {
		return failed[*Cursor](fmt.Errorf("build query: %w", err))
	}
	return s.query("query", stmt)
}

// Insert inserts one row and returns the number of rows affected.
func (s *Session) Insert(table string, vals *querysql.Values) *Future[int64] {
	return s.InsertWithConflict(table, vals, querysql.ConflictNone)
}

// InsertOrThrow is Insert under the name callers of the Android API expect:
// a constraint violation surfaces as a StorageError.
func (s *Session) InsertOrThrow(table string, vals *querysql.Values) *Future[int64] {
	return s.Insert(table, vals)
}

// InsertWithConflict inserts one row with INSERT OR <policy>.
func (s *Session) InsertWithConflict(table string, vals *querysql.Values, policy querysql.ConflictPolicy) *Future[int64] {
	stmt, err := querysql.InsertWithConflict(table, vals, policy)
	if err != nil {
		return failed[int64](fmt.Errorf("build insert: %w", err))
	}
	return s.exec("insert", stmt)
}

// Update updates matching rows and returns how many were affected.
func (s *Session) Update(table string, vals *querysql.Values, where queryir.Predicate) *Future[int64] {
	stmt, err := querysql.Update(table, vals, where)
	if err != nil {
		return failed[int64](fmt.Errorf("build update: %w", err))
	}
	return s.exec("update", stmt)
}

// Delete deletes matching rows and returns how many were affected.
func (s *Session) Delete(table string, where queryir.Predicate) *Future[int64] {
	stmt, err := querysql.Delete(table, where)
	if err != nil {
		return failed[int64](fmt.Errorf("build delete: %w", err))
	}
	return s.exec("delete", stmt)
}

// RawQuery runs hand-written SQL that returns rows.
func (s *Session) RawQuery(sqlText string, args ...any) *Future[*Cursor] {
	return s.query("rawQuery", querysql.Statement{SQL: sqlText, Args: args})
}

// Execute runs hand-written SQL as a write and commits it.
func (s *Session) Execute(sqlText string, args ...any) *Future[int64] {
	return s.exec("execute", querysql.Statement{SQL: sqlText, Args: args})
}

// Do runs fn as a single queued write: all of its statements commit
// together, or none do if fn returns an error.
func (s *Session) Do(op string, fn func(ctx context.Context, u Unit) error) *Future[struct{}] {
	return submit(s, op, "", true, func(ctx context.Context, c Conn) (struct{}, error) {
		return struct{}{}, fn(ctx, Unit{conn: c})
	})
}

// Version reads the persisted schema version.
func (s *Session) Version() *Future[int] {
	return submit(s, "version", "PRAGMA user_version", false, func(ctx context.Context, c Conn) (int, error) {
		return c.UserVersion(ctx)
	})
}

// SetVersion writes the persisted schema version.
func (s *Session) SetVersion(v int) *Future[struct{}] {
	return submit(s, "setVersion", "PRAGMA user_version", true, func(ctx context.Context, c Conn) (struct{}, error) {
		return struct{}{}, c.SetUserVersion(ctx, v)
	})
}

func (s *Session) query(op string, stmt querysql.Statement) *Future[*Cursor] {
	return submit(s, op, stmt.SQL, false, func(ctx context.Context, c Conn) (*Cursor, error) {
		return c.Query(ctx, stmt.SQL, stmt.Args...)
	})
}

func (s *Session) exec(op string, stmt querysql.Statement) *Future[int64] {
	return submit(s, op, stmt.SQL, true, func(ctx context.Context, c Conn) (int64, error) {
		return c.Exec(ctx, stmt.SQL, stmt.Args...)
	})
}

// Close queues the connection close behind every operation already queued.
// Operations requested afterwards, including a second Close, fail with
// ErrSessionClosed without being queued.
func (s *Session) Close() *Future[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return failed[struct{}](ErrSessionClosed)
	}
	s.closing = true

	seq := s.clock.Next()
	f := newFuture[struct{}](seq)
	s.queue.Enqueue(task{seq: seq, op: "close", run: func(ctx context.Context) {
		var err error
		if s.conn != nil {
			err = s.conn.Close()
			s.conn = nil
		}
		s.open.Store(false)
		if err != nil {
			err = s.failure(seq, "close", "", err)
		}
		f.resolve(struct{}{}, err)
	}})
	s.queue.Close()
	return f
}

// DeleteDatabase closes the session and then removes its backing storage.
// Callers must not have other operations in flight.
func (s *Session) DeleteDatabase(ctx context.Context) error {
	if _, err := s.Close().Wait(ctx); err != nil && !IsSessionClosed(err) {
		return err
	}
	select {
	case <-s.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := s.driver.Remove(s.name); err != nil {
		return fmt.Errorf("delete database %s: %w", s.name, err)
	}
	return nil
}
