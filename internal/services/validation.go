package services

import (
	"errors"
	"time"

	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/pkg/validator"
)

// validationError converts a struct validation failure into the domain taxonomy
func validationError(err error) error {
	var fe *validator.FieldError
	if errors.As(err, &fe) {
		return domain.ValidationError{Field: fe.Field, Msg: fe.Message, Err: err}
	}
	return domain.ValidationError{Msg: err.Error(), Err: err}
}

// parseUpcomingDate parses a YYYY-MM-DD date that must not be before today
func parseUpcomingDate(field, value string, today time.Time) (time.Time, error) {
	date, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, err.Error())
	}
	if date.Before(today) {
		return time.Time{}, domain.NewValidationError(field, "must not be in the past")
	}
	return date, nil
}
