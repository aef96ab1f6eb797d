package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-auth-api/internal/domain"
	"github.com/otp-auth-api/internal/pkg/id"
	pkgtoken "github.com/otp-auth-api/internal/pkg/token"
)

// codeTTL is how long an issued one-time code stays redeemable.
const codeTTL = 15 * time.Minute

// Service mirrors the outbound surface the OTP controller
// expects from a one-time-credential provider: issue a code for an email,
// redeem it into a session, and clean up afterwards.
type Service interface {
	IssueEmailToken(ctx context.Context, email string) (userID string, err error)
	RedeemSessionToken(ctx context.Context, userID, secret string) (*domain.Session, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	DeleteUser(ctx context.Context, userID string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	HardDelete(ctx context.Context, userID string) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	HardDelete(ctx context.Context, sessionID string) error
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.EmailToken) error
	Get(ctx context.Context, userID string) (*domain.EmailToken, error)
	Delete(ctx context.Context, userID string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	userRepo    userStore
	sessionRepo sessionStore
	tokenRepo   tokenStore
	mailer      mailer
}

type ServiceDeps struct {
	UserRepo    userStore
	SessionRepo sessionStore
	TokenRepo   tokenStore
	Mailer      mailer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:    deps.UserRepo,
		sessionRepo: deps.SessionRepo,
		tokenRepo:   deps.TokenRepo,
		mailer:      deps.Mailer,
	}
}

// IssueEmailToken generates a 6-digit code for the account behind email,
// creating an ephemeral account when none exists yet, and delivers the code
// by mail. Issuing a new code supersedes any pending one for the same user.
func (s *service) IssueEmailToken(ctx context.Context, email string) (string, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		now := time.Now().UTC()
		u = &domain.User{
			UserID:    id.New(),
			Email:     email,
			Ephemeral: true,
			Enable:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.userRepo.Put(ctx, u); err != nil {
			return "", fmt.Errorf("create otp identity: %w", err)
		}
	}

	code, err := pkgtoken.NewOTPCode()
	if err != nil {
		return "", err
	}
	t := &domain.EmailToken{
		UserID:    u.UserID,
		Code:      code,
		ExpiresAt: time.Now().Add(codeTTL).Unix(),
	}
	if err := s.tokenRepo.Put(ctx, t); err != nil {
		return "", fmt.Errorf("store email token: %w", err)
	}

	if err := s.mailer.SendEmail(u.Email, "Your verification code", "Your code: "+code); err != nil {
		return "", fmt.Errorf("send code email: %w", err)
	}
	return u.UserID, nil
}

// RedeemSessionToken exchanges a pending code for an OTP-carrier session.
// Wrong or expired codes wrap ErrUnauthorized so callers can count them as
// verification failures.
func (s *service) RedeemSessionToken(ctx context.Context, userID, secret string) (*domain.Session, error) {
	t, err := s.tokenRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("no pending code: %w", domain.ErrUnauthorized)
	}
	if t.Code != secret {
		return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	if t.ExpiresAt < time.Now().Unix() {
		return nil, fmt.Errorf("code expired: %w", domain.ErrUnauthorized)
	}
	if err := s.tokenRepo.Delete(ctx, userID); err != nil {
		slog.Warn("failed to delete redeemed email token", "user_id", userID, "err", err)
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID: id.New(),
		UserID:    userID,
		Carrier:   true,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("create carrier session: %w", err)
	}
	return sess, nil
}

func (s *service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	_ = userID
	return s.sessionRepo.HardDelete(ctx, sessionID)
}

// DeleteUser removes an account row, refusing to touch durable accounts.
func (s *service) DeleteUser(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Ephemeral {
		return fmt.Errorf("account is not ephemeral: %w", domain.ErrConflict)
	}
	return s.userRepo.HardDelete(ctx, userID)
}
