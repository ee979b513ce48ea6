package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	_ "time/tzdata" // timezone rule must not depend on the host zoneinfo

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// FieldError is the first failing field of a struct, named by its json tag.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cadence", func(fl validator.FieldLevel) bool {
		_, err := ParseCadence(fl.Field().String())
		return err == nil
	})
	return v
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}

	fe := errs[0]
	return &FieldError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return "invalid email address format"
	case "timezone":
		return fmt.Sprintf("%s must be an IANA timezone", fe.Field())
	case "cadence":
		return fmt.Sprintf("%s must be a comma-separated list of day offsets", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
