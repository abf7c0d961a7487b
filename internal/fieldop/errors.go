package fieldop

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes operation algebra errors.
type ErrorCode string

const (
	// ErrCodeMergeConflict indicates two operations cannot be folded into one.
	ErrCodeMergeConflict ErrorCode = "MERGE_CONFLICT"

	// ErrCodeUnknownOperation indicates an unrecognized "__op" name while decoding.
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"
)

// ErrIncompatibleValue is returned by Apply when an operation cannot act on
// the field's current value (e.g. Increment on a string).
var ErrIncompatibleValue = errors.New("operation incompatible with field value")

// MergeConflictError reports an invalid combination of a pending operation
// with a newly issued one. The pending change-set is left untouched.
type MergeConflictError struct {
	// Field is the affected field. Empty when Combine is called directly.
	Field string

	// Previous and Next are the symbolic names of the operations involved.
	Previous string
	Next     string

	// Err carries the underlying cause when the conflict came from applying
	// Next to a pending Set value.
	Err error
}

func (e *MergeConflictError) Error() string {
	msg := fmt.Sprintf("%s: cannot apply %s after %s", ErrCodeMergeConflict, e.Next, e.Previous)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MergeConflictError) Unwrap() error {
	return e.Err
}

// UnknownOperationError reports an "__op" name with no decoder.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("%s: unable to decode operation of type %q", ErrCodeUnknownOperation, e.Name)
}

// IsMergeConflict returns true if err is or wraps a MergeConflictError.
func IsMergeConflict(err error) bool {
	var mc *MergeConflictError
	return errors.As(err, &mc)
}

// IsUnknownOperation returns true if err is or wraps an UnknownOperationError.
func IsUnknownOperation(err error) bool {
	var uo *UnknownOperationError
	return errors.As(err, &uo)
}

func conflict(prev, next Operation) *MergeConflictError {
	return &MergeConflictError{Previous: prev.Name(), Next: next.Name()}
}
