// Package validate performs client-side form validation. Violations never
// reach the network; they surface as validation-category errors with
// per-field messages.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	gpvalidator "github.com/go-playground/validator/v10"

	"github.com/amehdaoui/dukkan/internal/errs"
)

var (
	v    *gpvalidator.Validate
	once sync.Once
)

func instance() *gpvalidator.Validate {
	once.Do(func() {
		v = gpvalidator.New(gpvalidator.WithRequiredStructEnabled())
	})
	return v
}

// LoginForm is the credential pair submitted to the login endpoint.
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=4"`
}

// ProductForm carries the user-editable product fields.
type ProductForm struct {
	Name        string  `validate:"required,max=120"`
	Description string  `validate:"required,max=2000"`
	Price       float64 `validate:"required,gt=0"`
}

// Struct validates any tagged form and maps violations into a
// validation-category error listing the offending fields.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs gpvalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.CategoryValidation, "", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldMessage(fe))
	}
	e := errs.New(errs.CategoryValidation, "invalid form: "+strings.Join(fields, "; "))
	e.Details = strings.Join(fields, "; ")
	e.Err = err
	return e
}

func fieldMessage(fe gpvalidator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
