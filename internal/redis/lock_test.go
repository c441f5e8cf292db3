package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSweepLocker(client, "lock:test-sweep", time.Minute), mr
}

func TestSweepLockRunsFn(t *testing.T) {
	locker, _ := newTestLocker(t)

	ran := false
	err := locker.WithSweepLock(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestSweepLockContention(t *testing.T) {
	locker, mr := newTestLocker(t)

	// Another replica already holds the key
	require.NoError(t, mr.Set("lock:test-sweep", "other-token"))

	err := locker.WithSweepLock(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn ran despite held lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestSweepLockReleasedAfterRun(t *testing.T) {
	locker, mr := newTestLocker(t)

	require.NoError(t, locker.WithSweepLock(context.Background(), func(ctx context.Context) error {
		return nil
	}))
	assert.False(t, mr.Exists("lock:test-sweep"))

	// Re-acquire succeeds once released
	require.NoError(t, locker.WithSweepLock(context.Background(), func(ctx context.Context) error {
		return nil
	}))
}

func TestSweepLockDoesNotStealForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)

	err := locker.WithSweepLock(context.Background(), func(ctx context.Context) error {
		// The lock expired mid-run and another replica took it over.
		mr.Set("lock:test-sweep", "other-token")
		return nil
	})
	require.NoError(t, err)
	val, getErr := mr.Get("lock:test-sweep")
	require.NoError(t, getErr)
	assert.Equal(t, "other-token", val)
}
