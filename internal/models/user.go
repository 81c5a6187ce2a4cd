package models

import (
	"strings"
	"time"
)

// User is an account on the backend. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MinPasswordLen is the shortest password accepted at sign-up.
const MinPasswordLen = 6

// Session is what the backend returns on sign-up, sign-in and refresh.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// ValidateCredentials checks an email/password pair before it is sent.
// Password length is only enforced for new accounts.
func ValidateCredentials(email, password string, signUp bool) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return invalid("credentials", "email and password are required")
	}
	if !strings.Contains(email, "@") {
		return invalid("email", "email is invalid")
	}
	if signUp && len(password) < MinPasswordLen {
		return invalid("password", "password must be at least 6 characters")
	}
	return nil
}
