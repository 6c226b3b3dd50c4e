package validator

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	// ErrEmptyEmail indicates the email address is empty
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrInvalidEmail indicates the address is not a single bare mailbox
	ErrInvalidEmail = errors.New("email must be a valid address, e.g. name@example.com")

	// ErrEmailTooLong indicates the address exceeds the RFC 5321 limit
	ErrEmailTooLong = errors.New("email must be at most 254 characters")
)

const maxEmailLength = 254

// EmailValidator handles email address validation
type EmailValidator struct{}

// NewEmailValidator creates a new email validator instance
func NewEmailValidator() *EmailValidator {
	return &EmailValidator{}
}

// Validate checks an email address and returns its normalized form
func (v *EmailValidator) Validate(email string) (string, error) {
	normalized := v.Normalize(email)
	if normalized == "" {
		return "", ErrEmptyEmail
	}
	if len(normalized) > maxEmailLength {
		return "", ErrEmailTooLong
	}

	// Display names ("Ana <ana@example.com>") are not accepted
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized || addr.Name != "" {
		return "", ErrInvalidEmail
	}

	at := strings.LastIndex(normalized, "@")
	if at <= 0 || !strings.Contains(normalized[at+1:], ".") {
		return "", ErrInvalidEmail
	}

	return normalized, nil
}

// Normalize trims spaces and lowercases the address
func (v *EmailValidator) Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValid is a convenience method that returns true if email is valid
func (v *EmailValidator) IsValid(email string) bool {
	_, err := v.Validate(email)
	return err == nil
}
