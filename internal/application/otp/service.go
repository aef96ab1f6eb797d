package otp

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/otp-auth-api/internal/domain"
)

// secretLength is the number of digits in a one-time code.
const secretLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type SendCodeResult struct {
	UserID string `json:"user_id"`
}

type VerifyRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Secret string `json:"secret" validate:"required"`
}

type VerifyResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"-"`
}

// Service orchestrates the send/verify lifecycle of one-time codes:
// validation first, rate-limit checks second, the provider call last, with
// bookkeeping recorded after the provider answers.
type Service interface {
	SendCode(ctx context.Context, email string) (*SendCodeResult, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

// rateLimiter is the policy-enforcement surface. Check operations propagate
// their errors (they are the enforcement); record operations are called
// best-effort by this service.
type rateLimiter interface {
	CheckSendCooldown(ctx context.Context, email string) error
	RecordSend(ctx context.Context, email string) error
	CheckVerifyLimit(ctx context.Context, userID string) error
	RecordVerifyFailure(ctx context.Context, userID string) error
	ResetVerifyLimit(ctx context.Context, userID string) error
}

// credentialProvider issues and redeems one-time credentials. DeleteSession
// and DeleteUser are cleanup primitives only ever called best-effort.
type credentialProvider interface {
	IssueEmailToken(ctx context.Context, email string) (userID string, err error)
	RedeemSessionToken(ctx context.Context, userID, secret string) (*domain.Session, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	DeleteUser(ctx context.Context, userID string) error
}

type service struct {
	limiter  rateLimiter
	provider credentialProvider
	// deleteUsers additionally removes the provider-side account during
	// post-verify cleanup; only safe when identities are ephemeral.
	deleteUsers bool
}

type Option func(*service)

// WithEphemeralCleanup makes Verify delete the provider-side user record
// after a successful verification, not just the carrier session.
func WithEphemeralCleanup() Option {
	return func(s *service) { s.deleteUsers = true }
}

func NewService(limiter rateLimiter, provider credentialProvider, opts ...Option) Service {
	s := &service{limiter: limiter, provider: provider}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendCode issues a one-time code for email. Validation runs before any
// rate-limit bookkeeping so malformed input never pollutes the limiter with
// garbage keys; the cooldown check runs before the provider call so a
// rejected sender costs nothing.
func (s *service) SendCode(ctx context.Context, email string) (*SendCodeResult, error) {
	if email == "" || !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("invalid email format: %w", domain.ErrBadRequest)
	}

	if err := s.limiter.CheckSendCooldown(ctx, email); err != nil {
		return nil, err
	}

	userID, err := s.provider.IssueEmailToken(ctx, email)
	if err != nil {
		return nil, &domain.ProviderError{Op: "failed to send OTP email", Err: err}
	}

	bestEffort("record send", func() error {
		return s.limiter.RecordSend(ctx, email)
	})
	return &SendCodeResult{UserID: userID}, nil
}

// Verify redeems a one-time code. Every attempt that reaches the provider is
// counted; attempts stopped by validation or by the limiter are not.
func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("userId is required: %w", domain.ErrBadRequest)
	}
	if req.Secret == "" {
		return nil, fmt.Errorf("secret is required: %w", domain.ErrBadRequest)
	}
	if len(req.Secret) != secretLength {
		return nil, fmt.Errorf("invalid OTP format: %w", domain.ErrBadRequest)
	}

	if err := s.limiter.CheckVerifyLimit(ctx, req.UserID); err != nil {
		return nil, err
	}

	sess, err := s.provider.RedeemSessionToken(ctx, req.UserID, req.Secret)
	if err != nil {
		bestEffort("record verify failure", func() error {
			return s.limiter.RecordVerifyFailure(ctx, req.UserID)
		})
		return nil, &domain.ProviderError{Op: "OTP verification failed", Err: err}
	}

	// The user has proven possession of the code; nothing below may fail
	// the verification.
	bestEffort("reset verify limit", func() error {
		return s.limiter.ResetVerifyLimit(ctx, req.UserID)
	})
	bestEffort("delete carrier session", func() error {
		return s.provider.DeleteSession(ctx, req.UserID, sess.SessionID)
	})
	if s.deleteUsers {
		bestEffort("delete ephemeral user", func() error {
			return s.provider.DeleteUser(ctx, req.UserID)
		})
	}

	return &VerifyResult{Success: true, UserID: req.UserID}, nil
}

// bestEffort runs a non-fatal side effect: failures are logged, never
// propagated, so limiter bookkeeping or cleanup can't mask the primary
// result of a send/verify operation.
func bestEffort(op string, fn func() error) {
	if err := fn(); err != nil {
		slog.Warn("best-effort operation failed", "op", op, "err", err)
	}
}
