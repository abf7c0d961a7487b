package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeDriver records every statement and the peak number of statements
// running at once.
type fakeDriver struct {
	mu          sync.Mutex
	delay       time.Duration
	failSQL     string
	openErr     error
	inFlight    int
	maxInFlight int
	executed    []string
	commits     int
	rollbacks   int
	opens       int
	removed     []string
	version     int
}

var errInjected = errors.New("injected failure")

func (d *fakeDriver) Open(ctx context.Context, name string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &fakeConn{d: d}, nil
}

func (d *fakeDriver) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removed = append(d.removed, name)
	return nil
}

func (d *fakeDriver) snapshot() (executed []string, maxInFlight, commits, rollbacks int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.executed...), d.maxInFlight, d.commits, d.rollbacks
}

type fakeConn struct {
	d *fakeDriver
}

func (c *fakeConn) run(sqlText string) error {
	d := c.d
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.executed = append(d.executed, sqlText)
	delay, fail := d.delay, d.failSQL
	d.mu.Unlock()

	time.Sleep(delay)

	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()

	switch {
	case sqlText == "PANIC":
		panic("boom")
	case fail != "" && sqlText == fail:
		return errInjected
	}
	return nil
}

func (c *fakeConn) Query(ctx context.Context, query string, args ...any) (*Cursor, error) {
	if err := c.run(query); err != nil {
		return nil, err
	}
	return NewCursor([]string{"sql"}, [][]any{{query}}), nil
}

func (c *fakeConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := c.run(query); err != nil {
		return 0, err
	}
	return 1, nil
}

func (c *fakeConn) Commit() error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.commits++
	return nil
}

func (c *fakeConn) Rollback() error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.rollbacks++
	return nil
}

func (c *fakeConn) UserVersion(ctx context.Context) (int, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	return c.d.version, nil
}

func (c *fakeConn) SetUserVersion(ctx context.Context, v int) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.version = v
	return nil
}

func (c *fakeConn) Close() error { return nil }
