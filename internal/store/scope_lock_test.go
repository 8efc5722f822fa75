package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisScopeLocker) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisScopeLocker(client, 5*time.Second)
}

func TestScopeLockKey(t *testing.T) {
	assert.Equal(t, "floor:layout-activation:global", ScopeLockKey(domain.LayoutScope{}))
	assert.Equal(t, "floor:layout-activation:patio", ScopeLockKey(domain.RoomScope("patio")))
}

func TestRedisScopeLocker_LockAndUnlock(t *testing.T) {
	mr, locker := setupTestRedis(t)
	scope := domain.RoomScope("patio")

	unlock, err := locker.Lock(context.Background(), scope)
	require.NoError(t, err)
	assert.True(t, mr.Exists(ScopeLockKey(scope)))
	assert.Equal(t, 5*time.Second, mr.TTL(ScopeLockKey(scope)))

	unlock()
	assert.False(t, mr.Exists(ScopeLockKey(scope)))
}

func TestRedisScopeLocker_BusyUntilContextDone(t *testing.T) {
	_, locker := setupTestRedis(t)
	scope := domain.LayoutScope{}

	unlock, err := locker.Lock(context.Background(), scope)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, scope)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestRedisScopeLocker_WaitsForRelease(t *testing.T) {
	_, locker := setupTestRedis(t)
	scope := domain.RoomScope("bar")

	unlock, err := locker.Lock(context.Background(), scope)
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		second, err := locker.Lock(ctx, scope)
		if err == nil {
			second()
		}
		acquired <- err
	}()

	time.Sleep(50 * time.Millisecond)
	unlock()
	assert.NoError(t, <-acquired)
}

func TestRedisScopeLocker_UnlockKeepsForeignToken(t *testing.T) {
	mr, locker := setupTestRedis(t)
	scope := domain.RoomScope("patio")
	key := ScopeLockKey(scope)

	unlock, err := locker.Lock(context.Background(), scope)
	require.NoError(t, err)

	// 锁过期后被其他实例取得
	mr.FastForward(6 * time.Second)
	require.NoError(t, mr.Set(key, "other-instance"))

	unlock()
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "other-instance", got)
}

func TestNopScopeLocker(t *testing.T) {
	unlock, err := NopScopeLocker{}.Lock(context.Background(), domain.LayoutScope{})
	require.NoError(t, err)
	unlock()
}
