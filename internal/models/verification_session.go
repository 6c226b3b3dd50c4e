package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationPurposeRegistration is the only purpose currently issued
const VerificationPurposeRegistration = "registration"

// VerificationSession is a short-lived email verification attempt.
// Clients refer to it by id; nothing about it lives in request sessions.
type VerificationSession struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Email       string     `json:"email" db:"email"`
	CodeHash    string     `json:"-" db:"code_hash"`
	Purpose     string     `json:"purpose" db:"purpose"`
	Attempts    int        `json:"attempts" db:"attempts"`
	MaxAttempts int        `json:"max_attempts" db:"max_attempts"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	IPAddress   string     `json:"-" db:"ip_address"`
	UserAgent   string     `json:"-" db:"user_agent"`
	DeviceType  string     `json:"-" db:"device_type"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the session can no longer be verified at now
func (s *VerificationSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsVerified reports whether the code was already accepted
func (s *VerificationSession) IsVerified() bool {
	return s.VerifiedAt != nil
}

// AttemptsExhausted reports whether no more codes may be tried
func (s *VerificationSession) AttemptsExhausted() bool {
	return s.Attempts >= s.MaxAttempts
}

// RegisterRequest starts a verification session
type RegisterRequest struct {
	Email     string `json:"email" binding:"required" validate:"required,email,max=254"`
	FirstName string `json:"first_name" binding:"required" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// VerifyRequest submits the emailed code
type VerifyRequest struct {
	SessionID string `json:"session_id" binding:"required" validate:"required,uuid"`
	Code      string `json:"code" binding:"required" validate:"required,numeric"`
}

// ResendRequest asks for a fresh code
type ResendRequest struct {
	SessionID string `json:"session_id" binding:"required" validate:"required,uuid"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// VerificationStarted is returned when a code was issued
type VerificationStarted struct {
	SessionID uuid.UUID `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	DevCode   string    `json:"dev_code,omitempty"` // only outside production
}

// AuthTokens is returned after a successful verification
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user"`
}
