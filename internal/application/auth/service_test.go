package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/otp-auth-api/internal/application/otp"
	"github.com/otp-auth-api/internal/domain"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}

type mockOtpService struct{ mock.Mock }

func (m *mockOtpService) SendCode(ctx context.Context, email string) (*otp.SendCodeResult, error) {
	args := m.Called(ctx, email)
	if r, _ := args.Get(0).(*otp.SendCodeResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOtpService) Verify(ctx context.Context, req otp.VerifyRequest) (*otp.VerifyResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*otp.VerifyResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, email, sessionID string) (string, error) {
	args := m.Called(userID, email, sessionID)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(us *mockUserStore, ss *mockSessionStore, os *mockOtpService, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{
		UserRepo:        us,
		SessionRepo:     ss,
		OtpService:      os,
		JWTProvider:     jwt,
		RefreshTokenDur: 30 * 24 * time.Hour,
	})
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- SignUp ---

func TestSignUp_EmailTaken_ReturnsConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)

	svc := newService(us, nil, nil, nil)
	_, err := svc.SignUp(context.Background(), domain.SignUpRequest{
		FullName: "Ada", Email: "a@b.com", Password: "password123",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestSignUp_HappyPath_SendsCode(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOtpService{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "a@b.com" && !u.EmailConfirmed && !u.Ephemeral && u.PasswordHash != ""
	})).Return(nil)
	os.On("SendCode", mock.Anything, "a@b.com").Return(&otp.SendCodeResult{UserID: "u1"}, nil)

	svc := newService(us, nil, os, nil)
	result, err := svc.SignUp(context.Background(), domain.SignUpRequest{
		FullName: "Ada", Email: "a@b.com", Password: "password123",
	})

	require.NoError(t, err)
	assert.True(t, result.Pending)
	assert.Equal(t, "u1", result.OtpUserID)
	us.AssertExpectations(t)
	os.AssertExpectations(t)
}

func TestSignUp_SendCodeRateLimited_Propagates(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOtpService{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.Anything).Return(nil)
	os.On("SendCode", mock.Anything, "a@b.com").Return(nil, domain.NewRateLimitError(20*time.Second))

	svc := newService(us, nil, os, nil)
	_, err := svc.SignUp(context.Background(), domain.SignUpRequest{
		FullName: "Ada", Email: "a@b.com", Password: "password123",
	})

	assert.True(t, domain.IsRateLimitError(err))
}

// --- SignIn ---

func TestSignIn_UnknownEmail_ReturnsUnauthorized(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	_, err := svc.SignIn(context.Background(), domain.SignInRequest{Email: "x@x.com", Password: "pw"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestSignIn_WrongPassword_ReturnsUnauthorized(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", Enable: true,
		PasswordHash: hashOf(t, "correct-password"),
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, err := svc.SignIn(context.Background(), domain.SignInRequest{Email: "a@b.com", Password: "wrong"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestSignIn_UnverifiedEmail_ResendsCode(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOtpService{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", Enable: true, EmailConfirmed: false,
		PasswordHash: hashOf(t, "password123"),
	}, nil)
	os.On("SendCode", mock.Anything, "a@b.com").Return(&otp.SendCodeResult{UserID: "u1"}, nil)

	svc := newService(us, nil, os, nil)
	result, err := svc.SignIn(context.Background(), domain.SignInRequest{Email: "a@b.com", Password: "password123"})

	require.NoError(t, err)
	assert.True(t, result.Pending)
	assert.Equal(t, "u1", result.OtpUserID)
	assert.Empty(t, result.Bearer)
}

func TestSignIn_VerifiedEmail_MintsSession(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	jwt := &mockJWTSigner{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", Enable: true, EmailConfirmed: true,
		PasswordHash: hashOf(t, "password123"),
	}, nil)
	ss.On("Put", mock.Anything, mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == "u1" && s.Enable && !s.Carrier && s.RefreshToken != ""
	})).Return(nil)
	jwt.On("Sign", "u1", "a@b.com", mock.Anything).Return("bearer-token", nil)

	svc := newService(us, ss, nil, jwt)
	result, err := svc.SignIn(context.Background(), domain.SignInRequest{Email: "a@b.com", Password: "password123"})

	require.NoError(t, err)
	assert.False(t, result.Pending)
	assert.Equal(t, "bearer-token", result.Bearer)
	assert.NotEmpty(t, result.RefreshToken)
	ss.AssertExpectations(t)
}

func TestSignIn_DisabledAccount_ReturnsUnauthorized(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", Enable: false,
		PasswordHash: hashOf(t, "password123"),
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, err := svc.SignIn(context.Background(), domain.SignInRequest{Email: "a@b.com", Password: "password123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

// --- VerifyOtp ---

func TestVerifyOtp_RateLimited_PropagatesWithRetryHint(t *testing.T) {
	os := &mockOtpService{}
	os.On("Verify", mock.Anything, otp.VerifyRequest{UserID: "u1", Secret: "123456"}).
		Return(nil, domain.NewRateLimitError(10*time.Minute))

	svc := newService(nil, nil, os, nil)
	_, err := svc.VerifyOtp(context.Background(), "u1", "123456")

	var rle *domain.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, 10*time.Minute, rle.RetryAfter)
}

func TestVerifyOtp_Success_ConfirmsEmailAndMintsSession(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	os := &mockOtpService{}
	jwt := &mockJWTSigner{}
	os.On("Verify", mock.Anything, otp.VerifyRequest{UserID: "u1", Secret: "123456"}).
		Return(&otp.VerifyResult{Success: true, UserID: "u1"}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		v, ok := m["email_confirmed"].(bool)
		return ok && v
	})).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com", Enable: true, EmailConfirmed: true}, nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", "u1", "a@b.com", mock.Anything).Return("bearer-token", nil)

	svc := newService(us, ss, os, jwt)
	result, err := svc.VerifyOtp(context.Background(), "u1", "123456")

	require.NoError(t, err)
	assert.False(t, result.Pending)
	assert.Equal(t, "bearer-token", result.Bearer)
	us.AssertExpectations(t)
}

func TestVerifyOtp_ProviderError_NoSessionMinted(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	os := &mockOtpService{}
	os.On("Verify", mock.Anything, mock.Anything).
		Return(nil, &domain.ProviderError{Op: "OTP verification failed", Err: domain.ErrUnauthorized})

	svc := newService(us, ss, os, nil)
	_, err := svc.VerifyOtp(context.Background(), "u1", "000000")

	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	ss.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}
