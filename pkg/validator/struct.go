package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"
)

// FieldError describes the first invalid field of a request
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StructValidator validates request structs by their `validate` tags.
// Field names in errors follow the json (or form) tag.
type StructValidator struct {
	validate *playground.Validate
}

// NewStructValidator creates a validator with the custom rules registered
func NewStructValidator() *StructValidator {
	v := playground.New(playground.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	// notpast: a YYYY-MM-DD string that is not before today (UTC calendar)
	_ = v.RegisterValidation("notpast", func(fl playground.FieldLevel) bool {
		d, err := time.Parse("2006-01-02", fl.Field().String())
		if err != nil {
			return false
		}
		y, m, day := time.Now().Date()
		return !d.Before(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
	})

	return &StructValidator{validate: v}
}

// Struct validates s and returns a *FieldError for the first failing field
func (sv *StructValidator) Struct(s interface{}) error {
	err := sv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	return &FieldError{Field: fe.Field(), Message: messageFor(fe)}
}

func messageFor(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be in YYYY-MM-DD format"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "uuid":
		return "must be a valid UUID"
	case "numeric":
		return "must contain only digits"
	case "notpast":
		return "must not be in the past"
	default:
		return "is invalid"
	}
}
