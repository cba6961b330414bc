package msgworker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_DispatchNonBlocking(t *testing.T) {
	pool := NewPool(2, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	start := time.Now()
	pool.Dispatch(Job{
		AccountID: "acc-1",
		ChatKey:   "15550001111",
		Handler: func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 10*time.Millisecond, "dispatch must not wait for the handler")
}

func TestPool_SameChatProcessedInOrder(t *testing.T) {
	pool := NewPool(4, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	var results []int
	var mu sync.Mutex

	for i := 1; i <= 5; i++ {
		val := i
		pool.Dispatch(Job{
			AccountID: "acc-1",
			ChatKey:   "15550001111",
			Handler: func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				results = append(results, val)
				mu.Unlock()
				return nil
			},
		})
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3, 4, 5}, results, "same conversation must keep arrival order")
}

func TestPool_DifferentChatsRunInParallel(t *testing.T) {
	pool := NewPool(4, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	var activeCount int32
	for i := 0; i < 4; i++ {
		chatKey := string(rune('A' + i))
		pool.Dispatch(Job{
			AccountID: "acc-1",
			ChatKey:   chatKey,
			Handler: func(ctx context.Context) error {
				atomic.AddInt32(&activeCount, 1)
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt32(&activeCount, -1)
				return nil
			},
		})
	}

	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&activeCount), int32(2),
		"distinct conversations should run concurrently")
}

func TestPool_GracefulShutdownFinishesQueuedJobs(t *testing.T) {
	pool := NewPool(2, 10)
	ctx, cancel := context.WithCancel(context.Background())

	pool.Start(ctx)

	var completed int32
	for i := 0; i < 2; i++ {
		pool.Dispatch(Job{
			AccountID: "acc-1",
			ChatKey:   string(rune('A' + i)),
			Handler: func(ctx context.Context) error {
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt32(&completed, 1)
				return nil
			},
		})
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	pool.Stop()

	assert.Equal(t, int32(2), atomic.LoadInt32(&completed), "queued jobs must finish during shutdown")
}

func TestPool_ConsistentSharding(t *testing.T) {
	pool := NewPool(4, 100)

	shard1 := pool.shardFor("acc-1", "15550001111")
	shard2 := pool.shardFor("acc-1", "15550001111")
	assert.Equal(t, shard1, shard2)
	assert.GreaterOrEqual(t, shard1, 0)
	assert.Less(t, shard1, 4)
}

func TestPool_DroppedWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	block := make(chan struct{})
	// First job occupies the worker, second fills the queue.
	pool.Dispatch(Job{AccountID: "a", ChatKey: "c", Handler: func(ctx context.Context) error {
		<-block
		return nil
	}})
	time.Sleep(10 * time.Millisecond)
	require.True(t, pool.TryDispatch(Job{AccountID: "a", ChatKey: "c", Handler: func(ctx context.Context) error { return nil }}))

	accepted := pool.TryDispatch(Job{AccountID: "a", ChatKey: "c", Handler: func(ctx context.Context) error { return nil }})
	assert.False(t, accepted, "full shard queue must apply backpressure")
	assert.Greater(t, pool.GetStats().TotalDropped, int64(0))

	close(block)
}
