package domain

import "time"

type User struct {
	UserID         string `json:"id" dynamodbav:"user_id"`
	Email          string `json:"email" dynamodbav:"email"`
	FullName       string `json:"full_name" dynamodbav:"full_name"`
	PasswordHash   string `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed bool   `json:"email_confirmed" dynamodbav:"email_confirmed"`
	// Ephemeral accounts exist only to carry an OTP flow and may be
	// deleted by the controller after a successful verification.
	Ephemeral bool       `json:"-" dynamodbav:"ephemeral"`
	Enable    bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type SignUpRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
