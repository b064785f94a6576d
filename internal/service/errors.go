package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means the caller's identity could not be resolved.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNotMember means the caller is not a member of the group they address.
	ErrNotMember       = errors.New("you are not a member of this group")

	ErrRequired    = errors.New("is required")
	ErrNotPositive = errors.New("must be greater than zero")
	ErrNotInGroup  = errors.New("is not a member of the group")
	ErrBadDate     = errors.New("must be a date in YYYY-MM-DD format")
	ErrBadCadence  = errors.New("must be one of monthly, weekly, yearly")
	ErrSelfPayment = errors.New("cannot be yourself")
	ErrWrongGroup  = errors.New("belongs to a different group")
	ErrInviteCode  = errors.New("does not match any group")
	ErrPrecision   = errors.New("must have at most two decimal places")
)

// ValidationError reports a request that was rejected before any state changed.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
