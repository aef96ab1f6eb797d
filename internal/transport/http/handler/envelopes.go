package handler

import (
	"encoding/json"
	"net/http"

	"github.com/otp-auth-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OtpEnvelope wraps the send/verify responses of the OTP flow.
type OtpEnvelope struct {
	UserID  string `json:"user_id,omitempty"`
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps sign-up/sign-in/verify responses. A pending response
// carries only the OTP user id; a completed one carries the tokens.
type AuthEnvelope struct {
	Pending      bool            `json:"pending,omitempty"`
	OtpUserID    string          `json:"otp_user_id,omitempty"`
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	User         *domain.User    `json:"user,omitempty"`
	Message      string          `json:"message,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	User    *domain.User    `json:"user,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// toSafeUser strips credential material before a user row leaves the API.
func toSafeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	safe := *u
	safe.PasswordHash = ""
	return &safe
}

// toSafeSession strips the refresh token and embedded user from a session row.
func toSafeSession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	safe := *s
	safe.RefreshToken = ""
	safe.User = nil
	return &safe
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
