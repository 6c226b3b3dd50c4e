// Package domain holds the error taxonomy shared by repositories, services and handlers.
package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports an absent trip, seat, reservation or catalog row.
type NotFoundError struct {
	Resource string
	ID       any
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	if e.ID != nil {
		return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ConflictError reports a lost race for a unique resource, e.g. a seat already reserved.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// StateError reports an action that is not allowed in the current lifecycle state.
type StateError struct {
	Resource string
	State    string
	Msg      string
	Err      error
}

func (e StateError) Error() string {
	switch {
	case e.Msg != "" && e.State != "":
		return fmt.Sprintf("%s (state: %s)", e.Msg, e.State)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "" && e.State != "":
		return fmt.Sprintf("%s is %s", e.Resource, e.State)
	default:
		return "invalid state"
	}
}

func (e StateError) Unwrap() error { return e.Err }

// InternalError wraps store or infrastructure failures.
type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func NewValidationError(field, msg string) error {
	return ValidationError{Field: field, Msg: msg}
}

func NewNotFoundError(resource string, id any) error {
	return NotFoundError{Resource: resource, ID: id}
}

func NewConflictError(resource, msg string, err error) error {
	return ConflictError{Resource: resource, Msg: msg, Err: err}
}

func NewStateError(resource, state, msg string) error {
	return StateError{Resource: resource, State: state, Msg: msg}
}

// Internal wraps err unless it already belongs to the taxonomy.
func Internal(msg string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsNotFound(err) || IsConflict(err) || IsState(err) || IsInternal(err) {
		return err
	}
	return InternalError{Msg: msg, Err: err}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsState(err error) bool {
	var target StateError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
