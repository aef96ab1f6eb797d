package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otp-auth-api/internal/domain"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_GetMissing_ReturnsNil(t *testing.T) {
	store, _ := newRedisStore(t)
	rec, err := store.Get(context.Background(), "verify:u1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisStore_UpsertGetRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	in := &domain.RateLimitRecord{
		Key:         "verify:u1",
		Count:       3,
		WindowStart: 1_700_000_000_000,
		LockedUntil: 1_700_000_900_000,
	}
	require.NoError(t, store.Upsert(ctx, in))

	out, err := store.Get(ctx, "verify:u1")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Count, out.Count)
	assert.Equal(t, in.WindowStart, out.WindowStart)
	assert.Equal(t, in.LockedUntil, out.LockedUntil)
}

func TestRedisStore_UpsertReplacesExisting(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.RateLimitRecord{Key: "verify:u1", Count: 1}))
	require.NoError(t, store.Upsert(ctx, &domain.RateLimitRecord{Key: "verify:u1", Count: 2}))

	out, err := store.Get(ctx, "verify:u1")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.RateLimitRecord{Key: "send:a@b.com", LastSentAt: 1}))
	require.NoError(t, store.Delete(ctx, "send:a@b.com"))

	rec, err := store.Get(ctx, "send:a@b.com")
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, "send:a@b.com"))
}

func TestRedisStore_KeysExpire(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.RateLimitRecord{Key: "verify:u1", Count: 1}))
	mr.FastForward(2*VerifyWindow + time.Second)

	rec, err := store.Get(ctx, "verify:u1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

// The full policy behaves identically on Redis and memory backends.
func TestLimiter_OnRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	clock := newFakeClock()
	l := NewLimiter(store, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < MaxVerifyAttempts; i++ {
		require.NoError(t, l.CheckVerifyLimit(ctx, "u1"))
		require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
	}
	require.Error(t, l.CheckVerifyLimit(ctx, "u1"))

	require.NoError(t, l.ResetVerifyLimit(ctx, "u1"))
	require.NoError(t, l.CheckVerifyLimit(ctx, "u1"))
}
