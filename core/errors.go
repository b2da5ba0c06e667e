package core

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned by EntityStore.Get when no document exists under
	// the requested ID. Reads treat it as a hard failure; cascade deletions
	// treat it as already satisfied.
	ErrNotFound = errors.New("entity not found")

	// ErrNotOwner is returned when an instructor mutates a Program (or anything
	// under it) that they do not own.
	ErrNotOwner = errors.New("caller does not own this resource")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// TranslateError converts validator.ValidationErrors into a *ValidationError
// with translated per-field messages; any other error passes through unchanged.
func TranslateError(err error) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(Translator)})
	}
	return NewValidationError(err, flds...)
}
