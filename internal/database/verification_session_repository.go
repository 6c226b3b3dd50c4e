package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// VerificationSessionRepository stores email verification sessions
type VerificationSessionRepository struct {
	db DB
}

// NewVerificationSessionRepository creates a new VerificationSessionRepository
func NewVerificationSessionRepository(db DB) *VerificationSessionRepository {
	return &VerificationSessionRepository{db: db}
}

// Create inserts a session
func (r *VerificationSessionRepository) Create(s *models.VerificationSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO verification_sessions (
			id, user_id, email, code_hash, purpose, attempts, max_attempts,
			expires_at, ip_address, user_agent, device_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(query,
		s.ID, s.UserID, s.Email, s.CodeHash, s.Purpose, s.Attempts, s.MaxAttempts,
		s.ExpiresAt, s.IPAddress, s.UserAgent, s.DeviceType, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification session: %w", err)
	}
	return nil
}

// GetByID returns a session or nil if it does not exist
func (r *VerificationSessionRepository) GetByID(id uuid.UUID) (*models.VerificationSession, error) {
	s := &models.VerificationSession{}
	query := `
		SELECT id, user_id, email, code_hash, purpose, attempts, max_attempts,
		       expires_at, verified_at, ip_address, user_agent, device_type, created_at
		FROM verification_sessions
		WHERE id = $1
	`

	if err := r.db.Get(s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get verification session: %w", err)
	}
	return s, nil
}

// IncrementAttempts records a failed code and returns the new attempt count
func (r *VerificationSessionRepository) IncrementAttempts(id uuid.UUID) (int, error) {
	var attempts int
	err := r.db.QueryRow(
		`UPDATE verification_sessions SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return attempts, nil
}

// MarkVerified stamps the session as verified, once
func (r *VerificationSessionRepository) MarkVerified(id uuid.UUID, at time.Time) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE verification_sessions SET verified_at = $2 WHERE id = $1 AND verified_at IS NULL`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark session verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// DeleteExpired removes unverified sessions that expired before cutoff
func (r *VerificationSessionRepository) DeleteExpired(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM verification_sessions WHERE verified_at IS NULL AND expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
