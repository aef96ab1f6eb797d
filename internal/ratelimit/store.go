package ratelimit

import (
	"context"

	"github.com/otp-auth-api/internal/domain"
)

// Store is the keyed record store behind the Limiter. Implementations must
// treat keys independently; the Limiter never touches more than one key per
// operation.
//
// Get returns (nil, nil) when no record exists for the key, so callers can
// distinguish "no history" from a store failure. Upsert replaces any existing
// record for the same key. Delete on a missing key is a no-op.
type Store interface {
	Get(ctx context.Context, key string) (*domain.RateLimitRecord, error)
	Upsert(ctx context.Context, rec *domain.RateLimitRecord) error
	Delete(ctx context.Context, key string) error
}
