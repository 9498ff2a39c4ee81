package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRunLock(t *testing.T) (*miniredis.Miniredis, *RunLock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRunLock(client, time.Minute)
}

func TestRunLock_AcquireRelease(t *testing.T) {
	_, lock := setupRunLock(t)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// 同一提交二次获取失败
	ok, err = lock.Acquire(ctx, "sub-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// 释放后可重新获取
	require.NoError(t, lock.Release(ctx, "sub-1"))
	ok, err = lock.Acquire(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLock_IndependentSubmissions(t *testing.T) {
	_, lock := setupRunLock(t)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// 不同提交互不影响
	ok, err = lock.Acquire(ctx, "sub-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLock_TTLExpiry(t *testing.T) {
	mr, lock := setupRunLock(t)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// 崩溃的运行不会永久占锁：TTL 到期自动释放
	mr.FastForward(2 * time.Minute)

	ok, err = lock.Acquire(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLock_KeyNaming(t *testing.T) {
	mr, lock := setupRunLock(t)

	ok, err := lock.Acquire(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("pipeline:run:sub-1"))
}
