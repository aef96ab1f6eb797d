package ratelimit

import (
	"context"
	"time"

	"github.com/otp-auth-api/internal/domain"
)

// Fixed abuse-control policy for the OTP flow.
const (
	// SendCooldown is the minimum spacing between two code sends for the
	// same email address.
	SendCooldown = 30 * time.Second
	// MaxVerifyAttempts is the number of failed verifications tolerated
	// inside one VerifyWindow before the key is locked out.
	MaxVerifyAttempts = 5
	// VerifyWindow is the sliding window for counting failed verifications.
	// A lockout always ends when the window that triggered it ends.
	VerifyWindow = 15 * time.Minute
)

const (
	sendKeyPrefix   = "send:"
	verifyKeyPrefix = "verify:"
)

// Limiter enforces the send-cooldown and verify-lockout policies against a
// keyed attempt history. The backing Store is injected so a single-process
// deployment can run on memory while multi-instance deployments share Redis
// or DynamoDB rows.
type Limiter struct {
	store Store
	now   func() time.Time
}

type Option func(*Limiter)

// WithClock replaces the wall clock, used by tests to control time.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func NewLimiter(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckSendCooldown fails with a RateLimitError while the key is still inside
// its cooldown. Read-only: a rejected call leaves no trace in the store.
func (l *Limiter) CheckSendCooldown(ctx context.Context, email string) error {
	rec, err := l.store.Get(ctx, sendKeyPrefix+email)
	if err != nil {
		return err
	}
	if rec == nil || rec.LastSentAt == 0 {
		return nil
	}
	elapsed := l.nowMillis() - rec.LastSentAt
	if elapsed < SendCooldown.Milliseconds() {
		return domain.NewRateLimitError(time.Duration(SendCooldown.Milliseconds()-elapsed) * time.Millisecond)
	}
	return nil
}

// RecordSend stamps the key with the current send time, superseding any
// previous record for the same email.
func (l *Limiter) RecordSend(ctx context.Context, email string) error {
	now := l.nowMillis()
	return l.store.Upsert(ctx, &domain.RateLimitRecord{
		Key:         sendKeyPrefix + email,
		WindowStart: now,
		LastSentAt:  now,
		ExpiresAt:   l.recordTTL(now),
	})
}

// CheckVerifyLimit fails with a RateLimitError when the key is locked out or
// has exhausted its attempts for the current window. An expired record is
// deleted on the way through (lazy expiry); reaching the attempt cap persists
// the lockout so later checks stay cheap.
func (l *Limiter) CheckVerifyLimit(ctx context.Context, userID string) error {
	key := verifyKeyPrefix + userID
	rec, err := l.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	now := l.nowMillis()
	if rec.LockedUntil != 0 && now < rec.LockedUntil {
		return domain.NewRateLimitError(time.Duration(rec.LockedUntil-now) * time.Millisecond)
	}
	if now-rec.WindowStart > VerifyWindow.Milliseconds() {
		if err := l.store.Delete(ctx, key); err != nil {
			return err
		}
		return nil
	}
	if rec.Count >= MaxVerifyAttempts {
		lockedUntil := rec.WindowStart + VerifyWindow.Milliseconds()
		rec.LockedUntil = lockedUntil
		if err := l.store.Upsert(ctx, rec); err != nil {
			return err
		}
		return domain.NewRateLimitError(time.Duration(lockedUntil-now) * time.Millisecond)
	}
	return nil
}

// RecordVerifyFailure counts one failed verification. A missing or expired
// record starts a fresh window at count 1.
func (l *Limiter) RecordVerifyFailure(ctx context.Context, userID string) error {
	key := verifyKeyPrefix + userID
	rec, err := l.store.Get(ctx, key)
	if err != nil {
		return err
	}
	now := l.nowMillis()
	if rec == nil || now-rec.WindowStart > VerifyWindow.Milliseconds() {
		return l.store.Upsert(ctx, &domain.RateLimitRecord{
			Key:         key,
			Count:       1,
			WindowStart: now,
			ExpiresAt:   l.recordTTL(now),
		})
	}
	rec.Count++
	return l.store.Upsert(ctx, rec)
}

// ResetVerifyLimit clears the failure history after a successful
// verification. A missing record is a no-op.
func (l *Limiter) ResetVerifyLimit(ctx context.Context, userID string) error {
	return l.store.Delete(ctx, verifyKeyPrefix+userID)
}

func (l *Limiter) nowMillis() int64 {
	return l.now().UnixMilli()
}

// recordTTL gives durable stores an expiry safely past the largest window so
// abandoned records cannot accumulate forever. Lazy expiry on read remains
// the source of truth.
func (l *Limiter) recordTTL(nowMillis int64) int64 {
	return nowMillis/1000 + 2*int64(VerifyWindow.Seconds())
}
