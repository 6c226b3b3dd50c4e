package database

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL error codes the repositories translate into domain errors
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// activeReservationIndex guards one pending or confirmed reservation per seat and date
const activeReservationIndex = "reservations_active_seat_date_key"

// pqErrorCode returns the SQLSTATE and constraint name of a driver error
func pqErrorCode(err error) (code, constraint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}

func isUniqueViolation(err error, constraint string) bool {
	code, name, ok := pqErrorCode(err)
	if !ok || code != pqUniqueViolation {
		return false
	}
	return constraint == "" || name == constraint
}

func isForeignKeyViolation(err error) bool {
	code, _, ok := pqErrorCode(err)
	return ok && code == pqForeignKeyViolation
}
