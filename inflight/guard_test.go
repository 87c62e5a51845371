package inflight

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, 30*time.Second), mr
}

func TestLocal_SecondAcquireIsBusy(t *testing.T) {
	g := NewLocal()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "user:1")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "user:1")
	assert.ErrorIs(t, err, ErrBusy)

	// other keys are independent
	other, err := g.Acquire(ctx, "user:2")
	require.NoError(t, err)
	other()

	release()
	release() // idempotent

	again, err := g.Acquire(ctx, "user:1")
	require.NoError(t, err)
	again()
}

func TestLocal_ConcurrentAcquire(t *testing.T) {
	g := NewLocal()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Acquire(context.Background(), "user:1"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRedis_AcquireRelease(t *testing.T) {
	g, mr := setupTestRedis(t)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(leaseKey("user:1")))
	assert.Equal(t, 30*time.Second, mr.TTL(leaseKey("user:1")))

	_, err = g.Acquire(ctx, "user:1")
	assert.ErrorIs(t, err, ErrBusy)

	release()
	assert.False(t, mr.Exists(leaseKey("user:1")))

	release2, err := g.Acquire(ctx, "user:1")
	require.NoError(t, err)
	release2()
}

func TestRedis_ReleaseKeepsForeignLease(t *testing.T) {
	g, mr := setupTestRedis(t)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "user:1")
	require.NoError(t, err)

	// the lease expired and another process took it over
	mr.FastForward(31 * time.Second)
	require.NoError(t, mr.Set(leaseKey("user:1"), "someone-else"))

	release()
	got, err := mr.Get(leaseKey("user:1"))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_Unavailable(t *testing.T) {
	g, mr := setupTestRedis(t)
	mr.Close()

	_, err := g.Acquire(context.Background(), "user:1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBusy)
}
