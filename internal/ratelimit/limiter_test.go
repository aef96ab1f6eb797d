package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otp-auth-api/internal/domain"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter() (*Limiter, *MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	clock := newFakeClock()
	return NewLimiter(store, WithClock(clock.Now)), store, clock
}

func retryAfter(t *testing.T, err error) time.Duration {
	t.Helper()
	var rle *domain.RateLimitError
	require.True(t, errors.As(err, &rle), "expected RateLimitError, got %v", err)
	return rle.RetryAfter
}

// --- send cooldown ---

func TestCheckSendCooldown_NoHistory_Passes(t *testing.T) {
	l, _, _ := newTestLimiter()
	require.NoError(t, l.CheckSendCooldown(context.Background(), "a@b.com"))
}

func TestSendCooldown_BlocksInsideWindow(t *testing.T) {
	l, _, clock := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, l.RecordSend(ctx, "a@b.com"))

	clock.Advance(10 * time.Second)
	err := l.CheckSendCooldown(ctx, "a@b.com")
	require.Error(t, err)
	assert.Equal(t, 20*time.Second, retryAfter(t, err))
}

func TestSendCooldown_PassesAfterCooldown(t *testing.T) {
	l, _, clock := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, l.RecordSend(ctx, "a@b.com"))

	clock.Advance(SendCooldown)
	require.NoError(t, l.CheckSendCooldown(ctx, "a@b.com"))
}

func TestSendCooldown_CheckHasNoSideEffect(t *testing.T) {
	l, _, clock := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, l.RecordSend(ctx, "a@b.com"))
	clock.Advance(10 * time.Second)

	// A rejected check must not restart the cooldown.
	require.Error(t, l.CheckSendCooldown(ctx, "a@b.com"))
	clock.Advance(20 * time.Second)
	require.NoError(t, l.CheckSendCooldown(ctx, "a@b.com"))
}

func TestSendCooldown_KeysAreIndependent(t *testing.T) {
	l, _, _ := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, l.RecordSend(ctx, "a@b.com"))
	require.NoError(t, l.CheckSendCooldown(ctx, "other@b.com"))
}

// Scenario: send at t=0 succeeds, t=10s is rejected with ~20s remaining,
// t=31s succeeds again.
func TestSendCooldown_Scenario(t *testing.T) {
	l, _, clock := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, l.CheckSendCooldown(ctx, "a@b.com"))
	require.NoError(t, l.RecordSend(ctx, "a@b.com"))

	clock.Advance(10 * time.Second)
	err := l.CheckSendCooldown(ctx, "a@b.com")
	assert.Equal(t, 20*time.Second, retryAfter(t, err))

	clock.Advance(21 * time.Second)
	require.NoError(t, l.CheckSendCooldown(ctx, "a@b.com"))
	require.NoError(t, l.RecordSend(ctx, "a@b.com"))
}

// --- verify lockout ---

func TestCheckVerifyLimit_NoHistory_Passes(t *testing.T) {
	l, _, _ := newTestLimiter()
	require.NoError(t, l.CheckVerifyLimit(context.Background(), "u1"))
}

func TestVerifyLimit_LocksAfterMaxAttempts(t *testing.T) {
	l, _, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < MaxVerifyAttempts; i++ {
		require.NoError(t, l.CheckVerifyLimit(ctx, "u1"))
		require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
		clock.Advance(time.Second)
	}

	err := l.CheckVerifyLimit(ctx, "u1")
	require.Error(t, err)
	// Locked exactly until the end of the window that started at the first failure.
	assert.Equal(t, VerifyWindow-time.Duration(MaxVerifyAttempts)*time.Second, retryAfter(t, err))
}

func TestVerifyLimit_BelowThreshold_Passes(t *testing.T) {
	l, _, _ := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < MaxVerifyAttempts-1; i++ {
		require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
	}
	require.NoError(t, l.CheckVerifyLimit(ctx, "u1"))
}

func TestVerifyLimit_LockoutPersisted(t *testing.T) {
	l, store, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < MaxVerifyAttempts; i++ {
		require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
	}
	require.Error(t, l.CheckVerifyLimit(ctx, "u1"))

	rec, err := store.Get(ctx, "verify:u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, rec.WindowStart+VerifyWindow.Milliseconds(), rec.LockedUntil)

	// Still locked after more time passes, with a shrinking wait.
	clock.Advance(5 * time.Minute)
	err = l.CheckVerifyLimit(ctx, "u1")
	assert.Equal(t, 10*time.Minute, retryAfter(t, err))
}

func TestVerifyLimit_WindowExpiryResetsCount(t *testing.T) {
	l, store, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < MaxVerifyAttempts-1; i++ {
		require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
	}

	clock.Advance(VerifyWindow + time.Second)
	require.NoError(t, l.CheckVerifyLimit(ctx, "u1"))
	// Lazy expiry removed the stale record.
	assert.Equal(t, 0, store.Len())

	require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
	rec, err := store.Get(ctx, "verify:u1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count)
}

func TestVerifyLimit_FailureAfterExpiredWindow_StartsFresh(t *testing.T) {
	l, store, clock := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
	clock.Advance(VerifyWindow + time.Minute)
	require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))

	rec, err := store.Get(ctx, "verify:u1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count)
	assert.Equal(t, clock.Now().UnixMilli(), rec.WindowStart)
}

func TestResetVerifyLimit_ClearsState(t *testing.T) {
	l, store, _ := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < MaxVerifyAttempts; i++ {
		require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
	}
	require.NoError(t, l.ResetVerifyLimit(ctx, "u1"))
	assert.Equal(t, 0, store.Len())
	require.NoError(t, l.CheckVerifyLimit(ctx, "u1"))

	// A fresh failure sequence counts from one again.
	require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
	rec, err := store.Get(ctx, "verify:u1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count)
}

func TestResetVerifyLimit_NoRecord_NoOp(t *testing.T) {
	l, _, _ := newTestLimiter()
	require.NoError(t, l.ResetVerifyLimit(context.Background(), "never-seen"))
}

// Scenario: five failures at one-second intervals, then even a would-be valid
// attempt is rejected until the window ends.
func TestVerifyLimit_LockoutScenario(t *testing.T) {
	l, _, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.CheckVerifyLimit(ctx, "u1"))
		require.NoError(t, l.RecordVerifyFailure(ctx, "u1"))
		clock.Advance(time.Second)
	}

	require.Error(t, l.CheckVerifyLimit(ctx, "u1"))

	// Just past the window end the slate is clean.
	clock.Advance(VerifyWindow)
	require.NoError(t, l.CheckVerifyLimit(ctx, "u1"))
}
