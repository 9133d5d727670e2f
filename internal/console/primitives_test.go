package console

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreNotifiesSubscribers(t *testing.T) {
	s := NewStore(0)
	var got []int
	unsub := s.Subscribe(func(v int) { got = append(got, v) })
	s.Set(1)
	s.Set(2)
	unsub()
	unsub()
	s.Set(3)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 3, s.Get())
}

func TestPollerStopWaitsForLoop(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(5*time.Millisecond, func(ctx context.Context) { calls.Add(1) })
	p.Start(context.Background())
	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	p.Stop()
	assert.False(t, p.Running())
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
	p.Stop()
}

func TestLatestDiscardsOlderResult(t *testing.T) {
	var l Latest[string]
	started := make(chan struct{})
	var wg sync.WaitGroup
	var firstErr error
	var firstCtxErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = l.Load(context.Background(), func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			firstCtxErr = ctx.Err()
			return "old", nil
		})
	}()
	<-started
	v, err := l.Load(context.Background(), func(ctx context.Context) (string, error) { return "new", nil })
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.ErrorIs(t, firstErr, ErrSuperseded)
	assert.ErrorIs(t, firstCtxErr, context.Canceled)
}

func TestInFlightGuard(t *testing.T) {
	var f InFlight
	release, ok := f.Acquire("p1")
	require.True(t, ok)
	_, ok = f.Acquire("p1")
	assert.False(t, ok)
	assert.True(t, f.Busy("p1"))
	_, ok = f.Acquire("p2")
	assert.True(t, ok)
	release()
	assert.False(t, f.Busy("p1"))
}
