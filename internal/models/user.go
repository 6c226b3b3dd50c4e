package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names carried in access tokens
const (
	RolePassenger = "passenger"
	RoleAdmin     = "admin"
)

// User is a registered passenger. Only verified users receive tokens.
type User struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	Email         string      `json:"email" db:"email"`
	FirstName     string      `json:"first_name" db:"first_name"`
	LastName      string      `json:"last_name" db:"last_name"`
	Roles         StringArray `json:"roles" db:"roles"`
	EmailVerified bool        `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HasRole checks whether the user has a specific role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
