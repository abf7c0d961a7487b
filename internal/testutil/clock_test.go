package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/session"
)

var _ session.Sequencer = (*DeterministicClock)(nil)

func TestDeterministicClock_NextAndReset(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	assert.Equal(t, []int64{1, 2}, clock.Issued())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Empty(t, clock.Issued())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_From(t *testing.T) {
	clock := NewDeterministicClockFrom(100)
	assert.Equal(t, int64(100), clock.Current())
	assert.Equal(t, int64(101), clock.Next())

	clock.Reset()
	assert.Equal(t, int64(101), clock.Next())
	assert.Equal(t, []int64{101}, clock.Issued())
}

func TestDeterministicClock_NoDuplicatesUnderContention(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, calls = 20, 50

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := clock.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls), clock.Current())
}

func TestDeterministicClock_SharedAcrossSessions(t *testing.T) {
	clock := NewDeterministicClock()
	ctx := context.Background()

	a, err := session.Open(ctx, session.SQLiteDriver{}, ":memory:", session.WithClock(clock))
	require.NoError(t, err)
	defer a.Close()
	b, err := session.Open(ctx, session.SQLiteDriver{}, ":memory:", session.WithClock(clock))
	require.NoError(t, err)
	defer b.Close()

	// Opens took 1 and 2.
	fa := a.Execute("CREATE TABLE t (x INTEGER)")
	fb := b.Execute("CREATE TABLE t (x INTEGER)")
	_, err = fa.Wait(ctx)
	require.NoError(t, err)
	_, err = fb.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), fa.Seq())
	assert.Equal(t, int64(4), fb.Seq())
	assert.Equal(t, []int64{1, 2, 3, 4}, clock.Issued())
}
