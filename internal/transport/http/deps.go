package http

import (
	"github.com/otp-auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/otp-auth-api/internal/infrastructure/jwt"
	"github.com/otp-auth-api/internal/infrastructure/smtp"
	"github.com/otp-auth-api/internal/ratelimit"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo       *dynamo.UserRepo
	SessionRepo    *dynamo.SessionRepo
	EmailTokenRepo *dynamo.EmailTokenRepo
	RateLimitStore ratelimit.Store
	Mailer         smtp.Mailer
	JWTProvider    *jwtinfra.Provider
}
