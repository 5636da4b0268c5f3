package screening

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField    = errors.New("unknown field")
	ErrNotANumber      = errors.New("value is not a number")
	ErrOutOfRange      = errors.New("value out of range")
	ErrIncompleteInput = errors.New("incomplete input")
	ErrInference       = errors.New("inference failed")
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationKind identifies why an answer was rejected
type ValidationKind string

const (
	KindUnknownField ValidationKind = "unknown_field"
	KindNotANumber   ValidationKind = "not_a_number"
	KindOutOfRange   ValidationKind = "out_of_range"
)

// ValidationError is returned when a submitted answer is rejected.
// Min and Max restate the field's valid range and are zero for unknown fields.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Raw   string
	Min   float64
	Max   float64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindUnknownField:
		return fmt.Sprintf("Invalid feature %q.", e.Field)
	case KindNotANumber:
		return fmt.Sprintf("%s must be a number between %g and %g.", e.label(), e.Min, e.Max)
	default:
		return fmt.Sprintf("%s must be between %g and %g.", e.label(), e.Min, e.Max)
	}
}

func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case KindUnknownField:
		return ErrUnknownField
	case KindNotANumber:
		return ErrNotANumber
	default:
		return ErrOutOfRange
	}
}

func (e *ValidationError) label() string {
	if f, ok := FieldByID(e.Field); ok {
		return f.Label
	}
	return e.Field
}

// IncompleteInputError is returned when a prediction is requested before
// every field has been answered.
type IncompleteInputError struct {
	Missing []string
}

func (e *IncompleteInputError) Error() string {
	return fmt.Sprintf("Please provide all inputs before making a prediction (%d missing).", len(e.Missing))
}

func (e *IncompleteInputError) Unwrap() error { return ErrIncompleteInput }

// InferenceError wraps a failure raised inside the scaler or classifier.
// Its message is generic; the cause is kept for logging only.
type InferenceError struct {
	Stage string
	Cause error
}

func (e *InferenceError) Error() string {
	return "An unexpected error occurred. Please try again."
}

// Is lets errors.Is match both ErrInference and the wrapped cause.
func (e *InferenceError) Is(target error) bool { return target == ErrInference }

func (e *InferenceError) Unwrap() error { return e.Cause }
