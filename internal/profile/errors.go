package profile

import (
	"errors"
	"fmt"
)

// ErrUnknownType is matched by errors.Is for every *UnknownTypeError.
var ErrUnknownType = errors.New("unknown business type")

// UnknownTypeError is returned by Store.Get when no profile is registered for TypeID.
type UnknownTypeError struct {
	TypeID string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown business type %q", e.TypeID)
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// ValidationError rejects a malformed profile table at load time.
type ValidationError struct {
	Profile string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("profile %q: %s: %s", e.Profile, e.Field, e.Reason)
}

func invalid(profile, field, format string, args ...any) *ValidationError {
	return &ValidationError{Profile: profile, Field: field, Reason: fmt.Sprintf(format, args...)}
}
