package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFake(t *testing.T, d *fakeDriver, opts ...Option) *Session {
	t.Helper()
	s, err := Open(context.Background(), d, "fake", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSession_ConcurrentCallersRunOneAtATime(t *testing.T) {
	d := &fakeDriver{delay: time.Millisecond}
	s := openFake(t, d)

	const n = 40
	type issued struct {
		sql string
		f   *Future[int64]
	}
	results := make(chan issued, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sqlText := fmt.Sprintf("UPDATE t SET n = %d;", i)
			results <- issued{sql: sqlText, f: s.Execute(sqlText)}
		}(i)
	}
	wg.Wait()
	close(results)

	var all []issued
	for r := range results {
		_, err := r.f.Wait(context.Background())
		require.NoError(t, err)
		all = append(all, r)
	}
	require.Len(t, all, n)

	// The database saw the statements in sequence-number order.
	sort.Slice(all, func(i, j int) bool { return all[i].f.Seq() < all[j].f.Seq() })
	want := make([]string, n)
	for i, r := range all {
		want[i] = r.sql
	}

	executed, maxInFlight, commits, _ := d.snapshot()
	assert.Equal(t, 1, maxInFlight, "no two database actions may overlap")
	assert.Equal(t, want, executed)
	assert.Equal(t, n, commits)
}

func TestSession_SequentialIssueOrder(t *testing.T) {
	d := &fakeDriver{}
	s := openFake(t, d)

	var futures []*Future[int64]
	for i := 0; i < 5; i++ {
		futures = append(futures, s.Execute(fmt.Sprintf("op %d", i)))
	}
	for i, f := range futures {
		_, err := f.Wait(context.Background())
		require.NoError(t, err)
		if i > 0 {
			assert.Greater(t, f.Seq(), futures[i-1].Seq())
		}
	}

	executed, _, _, _ := d.snapshot()
	assert.Equal(t, []string{"op 0", "op 1", "op 2", "op 3", "op 4"}, executed)
}

func TestSession_FailureDoesNotStallQueue(t *testing.T) {
	d := &fakeDriver{failSQL: "bad"}
	s := openFake(t, d)

	first := s.Execute("good 1")
	bad := s.Execute("bad")
	last := s.Execute("good 2")

	_, err := first.Wait(context.Background())
	require.NoError(t, err)

	n, err := bad.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(0), n)
	assert.True(t, IsStorageFailure(err))
	assert.ErrorIs(t, err, errInjected)

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "execute", se.Op)
	assert.Equal(t, "bad", se.SQL)
	assert.Equal(t, bad.Seq(), se.Seq)

	_, err = last.Wait(context.Background())
	require.NoError(t, err)

	_, _, commits, rollbacks := d.snapshot()
	assert.Equal(t, 2, commits)
	assert.Equal(t, 1, rollbacks)
	assert.True(t, s.IsOpen(), "connection stays usable")
}

func TestSession_FailedQueryYieldsNilCursor(t *testing.T) {
	d := &fakeDriver{failSQL: "SELECT broken"}
	s := openFake(t, d)

	cur, err := s.RawQuery("SELECT broken").Wait(context.Background())
	assert.Nil(t, cur)
	assert.True(t, IsStorageFailure(err))

	cur, err = s.RawQuery("SELECT fine").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cur.Len())
}

func TestSession_PanicIsRecovered(t *testing.T) {
	d := &fakeDriver{}
	s := openFake(t, d)

	_, err := s.Execute("PANIC").Wait(context.Background())
	require.Error(t, err)
	var pe *PanicError
	assert.True(t, errors.As(err, &pe))

	_, err = s.Execute("after").Wait(context.Background())
	assert.NoError(t, err)

	_, _, _, rollbacks := d.snapshot()
	assert.Equal(t, 1, rollbacks)
}

func TestSession_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	d := &fakeDriver{failSQL: "bad"}
	s := openFake(t, d, WithLogger(logger))

	_, err := s.Execute("bad").Wait(context.Background())
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "storage operation failed")
	assert.Contains(t, out, "op=execute")
	assert.Contains(t, out, "db=fake")
}

func TestSession_CloseIsQueued(t *testing.T) {
	d := &fakeDriver{delay: 2 * time.Millisecond}
	s, err := Open(context.Background(), d, "fake")
	require.NoError(t, err)

	before := s.Execute("before close")
	closed := s.Close()
	after := s.Execute("after close")

	// Rejected immediately, never queued.
	select {
	case <-after.Done():
	default:
		t.Fatal("operation after Close should fail fast")
	}
	_, err = after.Wait(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.True(t, IsSessionClosed(err))
	assert.Equal(t, int64(0), after.Seq())

	_, err = before.Wait(context.Background())
	require.NoError(t, err)
	_, err = closed.Wait(context.Background())
	require.NoError(t, err)
	assert.Greater(t, closed.Seq(), before.Seq())

	_, err = s.Close().Wait(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.False(t, s.IsOpen())

	<-s.Done()
	executed, _, _, _ := d.snapshot()
	assert.Equal(t, []string{"before close"}, executed)
}

func TestSession_OpenFailure(t *testing.T) {
	d := &fakeDriver{openErr: errors.New("disk on fire")}
	_, err := Open(context.Background(), d, "fake")
	require.Error(t, err)
	assert.True(t, IsStorageFailure(err))
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestSession_OperationsQueuedBehindFailedOpen(t *testing.T) {
	d := &fakeDriver{openErr: errors.New("nope")}
	s := start(d, "fake")
	defer s.Close()

	_, err := s.Execute("x").Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotOpen)
}

func TestSession_DoCommitsOnce(t *testing.T) {
	d := &fakeDriver{}
	s := openFake(t, d)

	_, err := s.Do("pair", func(ctx context.Context, u Unit) error {
		if _, err := u.ExecSQL(ctx, "one"); err != nil {
			return err
		}
		_, err := u.ExecSQL(ctx, "two")
		return err
	}).Wait(context.Background())
	require.NoError(t, err)

	_, err = s.Do("fails", func(ctx context.Context, u Unit) error {
		_, _ = u.ExecSQL(ctx, "three")
		return errors.New("abort unit")
	}).Wait(context.Background())
	require.Error(t, err)

	executed, _, commits, rollbacks := d.snapshot()
	assert.Equal(t, []string{"one", "two", "three"}, executed)
	assert.Equal(t, 1, commits)
	assert.Equal(t, 1, rollbacks)
}

func TestSession_WaitContextDoesNotCancel(t *testing.T) {
	d := &fakeDriver{delay: 20 * time.Millisecond}
	s := openFake(t, d)

	f := s.Execute("slow")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = f.Result()
	require.NoError(t, err)
	executed, _, _, _ := d.snapshot()
	assert.Equal(t, []string{"slow"}, executed)
}

func TestSession_SchemaHooksOnFake(t *testing.T) {
	d := &fakeDriver{version: 1}
	var from, to int
	openFake(t, d, WithSchema(Schema{
		Version: 3,
		OnCreate: func(ctx context.Context, u Unit) error {
			t.Error("OnCreate must not run for an existing database")
			return nil
		},
		OnUpgrade: func(ctx context.Context, u Unit, f, tt int) error {
			from, to = f, tt
			return nil
		},
	}))
	assert.Equal(t, 1, from)
	assert.Equal(t, 3, to)
	assert.Equal(t, 3, d.version)
}

func TestSession_WithClock(t *testing.T) {
	clock := NewClock()
	s := openFake(t, &fakeDriver{}, WithClock(clock))

	f := s.Execute("x")
	_, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.Seq(), "open is operation 1")
	assert.Equal(t, int64(2), clock.Current())
}

func TestSession_BuildErrorsAreNotQueued(t *testing.T) {
	d := &fakeDriver{}
	s := openFake(t, d)

	f := s.Insert("", nil)
	_, err := f.Wait(context.Background())
	require.Error(t, err)
	assert.False(t, IsStorageFailure(err))
	assert.Equal(t, int64(0), f.Seq())
}
