package lock

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

func TestCourtKeysSortedAndUnique(t *testing.T) {
	keys := CourtKeys(4, []string{"Court2", "Court1", "Court2"})
	assert.Equal(t, []string{
		"booking:venue:4:court:Court1",
		"booking:venue:4:court:Court2",
	}, keys)
}

func exerciseMutualExclusion(t *testing.T, locker Locker) {
	t.Helper()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), []string{"a", "b"})
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
}

func TestMemoryMutualExclusion(t *testing.T) {
	locker := NewMemory()
	exerciseMutualExclusion(t, locker)
	assert.Equal(t, 0, locker.size(), "entries should be dropped after release")
}

func TestMemoryAcquireRespectsContext(t *testing.T) {
	locker := NewMemory()
	release, err := locker.Acquire(context.Background(), []string{"a"})
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, []string{"b", "a"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// "b" was taken before blocking on "a" and must have been given back.
	releaseB, err := locker.Acquire(context.Background(), []string{"b"})
	require.NoError(t, err)
	releaseB()
}

func TestMemoryDisjointKeysDoNotBlock(t *testing.T) {
	locker := NewMemory()
	release, err := locker.Acquire(context.Background(), []string{"a"})
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := locker.Acquire(ctx, []string{"c"})
	require.NoError(t, err)
	other()
}

func newRedisLocker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, time.Second, time.Millisecond), server
}

func TestRedisMutualExclusion(t *testing.T) {
	locker, _ := newRedisLocker(t)
	exerciseMutualExclusion(t, locker)
}

func TestRedisReleaseOnlyOwnToken(t *testing.T) {
	locker, server := newRedisLocker(t)

	release, err := locker.Acquire(context.Background(), []string{"court"})
	require.NoError(t, err)
	assert.True(t, server.Exists("court"))

	// Simulate expiry and takeover by another holder.
	server.FastForward(2 * time.Second)
	require.NoError(t, server.Set("court", "someone-else"))

	release()
	got, err := server.Get("court")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisAcquireTimesOut(t *testing.T) {
	locker, _ := newRedisLocker(t)

	release, err := locker.Acquire(context.Background(), []string{"court"})
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, []string{"court"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
