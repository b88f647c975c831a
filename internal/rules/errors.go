package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors for rule and action validation. All of them describe bad
// caller input and are never retryable.
var (
	// ErrInvalidField indicates a condition names a field outside the schema.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidOperator indicates an operator not allowed for the field's kind.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidValue indicates a value that fails the kind's grammar.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidPredicate indicates a group predicate other than all/any.
	ErrInvalidPredicate = errors.New("invalid predicate")

	// ErrInvalidLocation indicates a location outside the location group.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidCategory indicates a category outside the category group.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidNode indicates a raw node whose type is neither rule nor condition.
	ErrInvalidNode = errors.New("invalid node type")
)

// ValidationError carries the offending input alongside one of the sentinels.
type ValidationError struct {
	Err   error
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, value string) error {
	return &ValidationError{Err: err, Value: value}
}
