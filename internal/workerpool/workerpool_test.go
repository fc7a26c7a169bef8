package workerpool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wireit-go/wireit/internal/workerpool"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := workerpool.New(2)
	ctx := context.Background()

	var running, maxRunning atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 3)

	for i := 0; i < 3; i++ {
		go func() {
			require.NoError(t, pool.Acquire(ctx))
			defer pool.Release()

			cur := running.Add(1)
			for {
				m := maxRunning.Load()
				if cur <= m || maxRunning.CompareAndSwap(m, cur) {
					break
				}
			}
			started <- struct{}{}
			<-release
			running.Add(-1)
		}()
	}

	<-started
	<-started
	time.Sleep(50 * time.Millisecond) // give the third a chance to (fail to) acquire
	require.Equal(t, int32(2), maxRunning.Load())
	close(release)
}

func TestPool_AcquireRespectsContextCancellation(t *testing.T) {
	pool := workerpool.New(1)
	require.NoError(t, pool.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
