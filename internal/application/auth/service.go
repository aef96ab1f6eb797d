package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/otp-auth-api/internal/application/otp"
	"github.com/otp-auth-api/internal/domain"
	"github.com/otp-auth-api/internal/pkg/id"
	pkgtoken "github.com/otp-auth-api/internal/pkg/token"
)

// Result is the outcome of a sign-up, sign-in or OTP verification. While the
// email is unverified the flow is pending: OtpUserID correlates the sent code
// with the later verify call and no tokens are issued yet.
type Result struct {
	Pending      bool            `json:"pending"`
	OtpUserID    string          `json:"otp_user_id,omitempty"`
	Bearer       string          `json:"-"`
	RefreshToken string          `json:"-"`
	Session      *domain.Session `json:"-"`
}

// Service is the caller-side orchestration around the OTP controller:
// it owns accounts and application sessions, and surfaces rate-limit errors
// from the controller unchanged so transport can add retry hints.
type Service interface {
	SignUp(ctx context.Context, req domain.SignUpRequest) (*Result, error)
	SignIn(ctx context.Context, req domain.SignInRequest) (*Result, error)
	VerifyOtp(ctx context.Context, userID, secret string) (*Result, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
}

type jwtSigner interface {
	Sign(userID, email, sessionID string) (string, error)
}

type service struct {
	userRepo        userStore
	sessionRepo     sessionStore
	otpSvc          otp.Service
	jwtProvider     jwtSigner
	refreshTokenDur time.Duration
}

type ServiceDeps struct {
	UserRepo        userStore
	SessionRepo     sessionStore
	OtpService      otp.Service
	JWTProvider     jwtSigner
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:        deps.UserRepo,
		sessionRepo:     deps.SessionRepo,
		otpSvc:          deps.OtpService,
		jwtProvider:     deps.JWTProvider,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

// SignUp creates the account and immediately starts the email verification
// flow. The caller holds on to otp_user_id until the code arrives.
func (s *service) SignUp(ctx context.Context, req domain.SignUpRequest) (*Result, error) {
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}

	sent, err := s.otpSvc.SendCode(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	return &Result{Pending: true, OtpUserID: sent.UserID}, nil
}

// SignIn checks credentials. Accounts with an unverified email get a fresh
// code instead of a session.
func (s *service) SignIn(ctx context.Context, req domain.SignInRequest) (*Result, error) {
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}

	if !u.EmailConfirmed {
		sent, err := s.otpSvc.SendCode(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		return &Result{Pending: true, OtpUserID: sent.UserID}, nil
	}

	return s.mintSession(ctx, u)
}

// VerifyOtp completes a pending flow: the controller redeems the code, the
// account's email is marked confirmed and an application session is minted.
func (s *service) VerifyOtp(ctx context.Context, userID, secret string) (*Result, error) {
	if _, err := s.otpSvc.Verify(ctx, otp.VerifyRequest{UserID: userID, Secret: secret}); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, userID, map[string]interface{}{"email_confirmed": true}); err != nil {
		return nil, err
	}
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.mintSession(ctx, u)
}

func (s *service) mintSession(ctx context.Context, u *domain.User) (*Result, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Email, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &Result{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}
