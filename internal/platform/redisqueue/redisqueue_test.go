package redisqueue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/redisqueue"
)

func newTestService(t *testing.T) (*redisqueue.Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log, err := logger.New("test")
	require.NoError(t, err)

	t.Setenv("WORKER_BACKOFF_SECONDS", "30,120,300")
	t.Setenv("WORKER_LOCK_TTL_MS", "900000")

	return redisqueue.New(log, rdb), mr
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, redisqueue.KindVideo, redisqueue.Envelope{ID: "v1", Reason: "finalize"}))
	require.NoError(t, svc.Enqueue(ctx, redisqueue.KindVideo, redisqueue.Envelope{ID: "v2", Reason: "finalize"}))

	env, err := svc.Dequeue(ctx, redisqueue.KindVideo)
	require.NoError(t, err)
	require.NotNil(t, env)
	require.Equal(t, "v1", env.ID)

	env, err = svc.Dequeue(ctx, redisqueue.KindVideo)
	require.NoError(t, err)
	require.NotNil(t, env)
	require.Equal(t, "v2", env.ID)
}

func TestTryAcquireExclusive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lock, ok, err := svc.TryAcquire(ctx, redisqueue.KindVideo, "v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, lock)

	_, ok2, err := svc.TryAcquire(ctx, redisqueue.KindVideo, "v1")
	require.NoError(t, err)
	require.False(t, ok2, "second acquire on the same id must fail while held")

	require.NoError(t, lock.Release(ctx))

	_, ok3, err := svc.TryAcquire(ctx, redisqueue.KindVideo, "v1")
	require.NoError(t, err)
	require.True(t, ok3, "acquire must succeed again after release")
}

func TestReleaseRequiresOwnership(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	lock, ok, err := svc.TryAcquire(ctx, redisqueue.KindVideo, "v1")
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate another worker stealing the key after expiry by overwriting
	// its value directly; Release must not delete a key it no longer owns.
	require.NoError(t, mr.Set("lock:video:v1", "someone-else-token"))
	require.NoError(t, lock.Release(ctx))

	v, err := mr.Get("lock:video:v1")
	require.NoError(t, err)
	require.Equal(t, "someone-else-token", v, "release must not clobber another holder's lock")
}

func TestAttemptsAndBackoff(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	n, err := svc.Attempts(ctx, redisqueue.KindVideo, "v1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 30*time.Second, svc.BackoffDelay(n))
	require.False(t, svc.ExceedsBudget(n))

	for i := 0; i < 2; i++ {
		n, err = svc.Attempts(ctx, redisqueue.KindVideo, "v1")
		require.NoError(t, err)
	}
	require.Equal(t, 3, n)
	require.False(t, svc.ExceedsBudget(n))

	n, err = svc.Attempts(ctx, redisqueue.KindVideo, "v1")
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.True(t, svc.ExceedsBudget(n), "4th attempt exceeds a 3-entry backoff array")

	require.NoError(t, svc.ResetAttempts(ctx, redisqueue.KindVideo, "v1"))
	n, err = svc.Attempts(ctx, redisqueue.KindVideo, "v1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDeadLetterCapped(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	env := redisqueue.Envelope{ID: "v1", Reason: "finalize"}
	require.NoError(t, svc.DeadLetter(ctx, redisqueue.KindVideo, env, errors.New("boom"), 4))

	n, err := mr.Llen("dlq:videos")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDequeueTimeoutReturnsNilNil(t *testing.T) {
	svc, mr := newTestService(t)
	mr.SetError("") // no-op, keep miniredis healthy

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	env, err := svc.Dequeue(ctx, redisqueue.KindEmail)
	require.NoError(t, err)
	require.Nil(t, env)
}
