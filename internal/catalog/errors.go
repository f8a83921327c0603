package catalog

import "fmt"

// ValidationError is returned by Normalize when a required field is missing
// or has the wrong shape. It is recoverable: the record is skipped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: field %q %s", e.Field, e.Reason)
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

func wrongType(field, want string) *ValidationError {
	return &ValidationError{Field: field, Reason: "must be " + want}
}
