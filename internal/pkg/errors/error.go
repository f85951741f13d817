package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict: resource state does not allow this operation")
	ErrRateLimited  = errors.New("too many requests")

	// ErrSignatureMismatch marks a gateway callback whose signature did not verify.
	// It is kept apart from ErrNotFound so callers can tell tampering from a typo.
	ErrSignatureMismatch = errors.New("payment signature verification failed")

	// ErrUpstream marks a failure of a remote dependency such as the payment gateway.
	ErrUpstream = errors.New("upstream dependency failure")
)

// Invalid returns an ErrInvalidInput carrying a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
