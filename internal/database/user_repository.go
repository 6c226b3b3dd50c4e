package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

const userColumns = `id, email, first_name, last_name, roles, email_verified, created_at, updated_at`

// CreateUser creates an unverified user with the passenger role
func (r *UserRepository) CreateUser(email, firstName, lastName string) (*models.User, error) {
	now := time.Now()
	user := &models.User{
		ID:            uuid.New(),
		Email:         strings.ToLower(email),
		FirstName:     firstName,
		LastName:      lastName,
		Roles:         models.StringArray{models.RolePassenger},
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO users (
			id, email, first_name, last_name, roles,
			email_verified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Roles,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	err := r.db.Get(user, query, strings.ToLower(email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	err := r.db.Get(user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// UpdateUserNames refreshes the names of a user that registers again before verifying
func (r *UserRepository) UpdateUserNames(id uuid.UUID, firstName, lastName string) error {
	_, err := r.db.Exec(
		`UPDATE users SET first_name = $2, last_name = $3, updated_at = $4 WHERE id = $1`,
		id, firstName, lastName, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user names: %w", err)
	}
	return nil
}

// MarkEmailVerified flags the user's email as verified
func (r *UserRepository) MarkEmailVerified(id uuid.UUID) error {
	result, err := r.db.Exec(
		`UPDATE users SET email_verified = TRUE, updated_at = $2 WHERE id = $1`,
		id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// AddUserRole adds a role to a user if it is not already present
func (r *UserRepository) AddUserRole(id uuid.UUID, role string) error {
	query := `
		UPDATE users
		SET roles = array_append(roles, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY(roles))
	`

	if _, err := r.db.Exec(query, id, role, time.Now()); err != nil {
		return fmt.Errorf("failed to add user role: %w", err)
	}
	return nil
}

// DeleteUnverifiedBefore removes users that never verified their email and
// registered before cutoff. It returns how many were removed.
func (r *UserRepository) DeleteUnverifiedBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM users WHERE email_verified = FALSE AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unverified users: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
