package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the role policy forbids an action.
	// Nothing is stored when it is returned.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnknownUser is returned when a referenced user id is not in the directory.
	ErrUnknownUser = errors.New("unknown user")
	// ErrDuplicateEmail is returned when registering an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrRateLimited is returned when a sender exceeds its send budget.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func denied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

func unknownUser(id int64) error {
	return fmt.Errorf("%w: %d", ErrUnknownUser, id)
}
