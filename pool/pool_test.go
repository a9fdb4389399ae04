package pool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/katalvlaran/wavemoth/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func square(i int) pool.Task[int] {
	return func(context.Context) (int, error) {
		if i < 0 {
			return 0, errBoom
		}

		return i * i, nil
	}
}

// exercise submits squares of -1..5 and checks every handle.
func exercise(t *testing.T, e pool.Executor[int]) {
	t.Helper()
	ctx := context.Background()
	handles := make([]*pool.Handle[int], 0, 7)
	for i := -1; i <= 5; i++ {
		handles = append(handles, e.Submit(square(i)))
	}
	_, err := handles[0].Await(ctx)
	require.ErrorIs(t, err, errBoom)
	for i, h := range handles[1:] {
		v, err := h.Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, i*i, v)
	}
}

func TestImmediate(t *testing.T) {
	e := pool.NewImmediate[int]()
	ran := false
	h := e.Submit(func(context.Context) (int, error) { ran = true; return 1, nil })
	assert.True(t, ran, "task must run inside Submit")
	select {
	case <-h.Done():
	default:
		t.Fatal("handle not resolved")
	}
	exercise(t, e)
	require.NoError(t, e.Close())

	_, err := e.Submit(square(2)).Await(context.Background())
	require.ErrorIs(t, err, pool.ErrClosed)
}

func TestPool(t *testing.T) {
	e := pool.NewPool[int](context.Background(), 3)
	exercise(t, e)
	require.ErrorIs(t, e.Close(), errBoom)

	_, err := e.Submit(square(2)).Await(context.Background())
	require.ErrorIs(t, err, pool.ErrClosed)
}

// TestPoolLimit never observes more than the configured concurrency.
func TestPoolLimit(t *testing.T) {
	const workers = 2
	e := pool.NewPool[int](context.Background(), workers)
	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		e.Submit(func(context.Context) (int, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)

			return 0, nil
		})
	}
	require.NoError(t, e.Close())
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Positive(t, peak.Load())
}

func TestAwaitHonorsContext(t *testing.T) {
	e := pool.NewPool[int](context.Background(), 1)
	release := make(chan struct{})
	h := e.Submit(func(context.Context) (int, error) { <-release; return 7, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := h.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	require.NoError(t, e.Close())
}

// TestCloseRacingSubmit: once Close returns, every accepted task has finished
// and every rejected one reports ErrClosed.
func TestCloseRacingSubmit(t *testing.T) {
	e := pool.NewPool[int](context.Background(), 4)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		handles []*pool.Handle[int]
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h := e.Submit(square(i))
				mu.Lock()
				handles = append(handles, h)
				mu.Unlock()
			}
		}()
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, e.Close())
	wg.Wait()

	for _, h := range handles {
		select {
		case <-h.Done():
		default:
			t.Fatal("accepted task still pending after Close")
		}
		if _, err := h.Await(context.Background()); err != nil {
			require.ErrorIs(t, err, pool.ErrClosed)
		}
	}
}
