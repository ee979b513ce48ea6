package service

import (
	"errors"

	"github.com/reyschwartz19/OpTracker/internal/validation"
)

// ValidationError is malformed input. The request is rejected and nothing
// is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// DuplicateSourceURLError reports that the owner already tracks an
// opportunity with the same source URL.
type DuplicateSourceURLError struct {
	ExistingID string
}

func (e *DuplicateSourceURLError) Error() string {
	return "An opportunity with this URL already exists"
}

// IsValidation reports whether err should be surfaced as a bad request.
func IsValidation(err error) bool {
	var ve *ValidationError
	var de *DuplicateSourceURLError
	return errors.As(err, &ve) || errors.As(err, &de)
}

// validateStruct runs struct tags and converts the first failure.
func validateStruct(s any) error {
	err := validation.Struct(s)
	if err == nil {
		return nil
	}

	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return invalid(fe.Field, fe.Message)
	}
	return err
}
