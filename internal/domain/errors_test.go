package domain

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"validation", NewValidationError("travel_date", "must not be in the past"), IsValidation},
		{"not found", NewNotFoundError("trip", int64(7)), IsNotFound},
		{"conflict", NewConflictError("seat", "seat already reserved", nil), IsConflict},
		{"state", NewStateError("reservation", "confirmed", "reservation is not pending"), IsState},
		{"internal", Internal("load trip", sql.ErrConnDone), IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.True(t, tt.is(tt.err))
			assert.True(t, tt.is(wrapped))
		})
	}
}

func TestPredicatesAreDisjoint(t *testing.T) {
	err := NewConflictError("seat", "seat already reserved", nil)

	assert.False(t, IsValidation(err))
	assert.False(t, IsState(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsInternal(err))
}

func TestInternal_KeepsTaxonomyErrors(t *testing.T) {
	original := NewNotFoundError("reservation", int64(3))

	assert.Equal(t, original, Internal("load reservation", original))
	assert.Nil(t, Internal("nothing", nil))

	wrapped := Internal("load reservation", sql.ErrConnDone)
	assert.True(t, errors.Is(wrapped, sql.ErrConnDone))
	assert.Equal(t, "load reservation: sql: connection is already closed", wrapped.Error())
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "travel_date: bad format", ValidationError{Field: "travel_date", Msg: "bad format"}.Error())
	assert.Equal(t, "invalid seat_id", ValidationError{Field: "seat_id"}.Error())
	assert.Equal(t, "trip 9 not found", NotFoundError{Resource: "trip", ID: 9}.Error())
	assert.Equal(t, "seat not found", NotFoundError{Resource: "seat"}.Error())
	assert.Equal(t, "seat conflict: seat already reserved", ConflictError{Resource: "seat", Msg: "seat already reserved"}.Error())
	assert.Equal(t, "reservation is not pending (state: confirmed)", StateError{State: "confirmed", Msg: "reservation is not pending"}.Error())
	assert.Equal(t, "invalid state", StateError{}.Error())
}
