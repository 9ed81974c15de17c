package intervention

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("intervention not found")
	ErrMemberNotFound = errors.New("member not found")
)

// ValidationError describes a malformed request field. Valid lists the
// accepted values when the field is an enumeration.
type ValidationError struct {
	Field  string
	Reason string
	Valid  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalidEnum[T ~string](field string, got T, valid []T) error {
	names := make([]string, len(valid))
	for i, v := range valid {
		names[i] = string(v)
	}
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("invalid value %q", got),
		Valid:  names,
	}
}

func required(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}
