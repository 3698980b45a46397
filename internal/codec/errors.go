package codec

import (
	"fmt"

	"execgate/internal/model/enum"
	"execgate/pkg/exception"
)

// FieldError reports which field failed to decode. Err is one of the
// exception.Err* decode sentinels.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	}
	return fmt.Sprintf("%v: %s=%q", e.Err, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// FieldCountError is returned when a text frame carries the wrong number of fields for its tag.
type FieldCountError struct {
	Kind     enum.EventKind
	Expected int
	Actual   int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("%v: %s expects %d fields, got %d", exception.ErrFieldCountMismatch, e.Kind, e.Expected, e.Actual)
}

func (e *FieldCountError) Unwrap() error {
	return exception.ErrFieldCountMismatch
}
