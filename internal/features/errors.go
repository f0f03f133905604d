package features

import (
	"errors"
	"fmt"
)

// ErrFeatureEngineering marks a snapshot that is missing a field, carries a
// value of the wrong type, or violates one of the snapshot invariants.
var ErrFeatureEngineering = errors.New("feature engineering failed")

// FieldError names the offending snapshot field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrFeatureEngineering
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
