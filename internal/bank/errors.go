package bank

import (
	"errors"
	"fmt"
)

// Error kinds. Every business failure returned by this package wraps exactly
// one of these sentinels so callers can classify with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence error")
	ErrDuplicate     = errors.New("duplicate")
)

// Common conditions, pre-wrapped.
var (
	// ErrInvalidCredentials covers both unknown username and wrong password
	// to avoid user enumeration.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrAuthorization)
	ErrNoSession          = fmt.Errorf("%w: no active session", ErrAuthorization)
	ErrAdminOnly          = fmt.Errorf("%w: administrator privileges required", ErrAuthorization)
	ErrNotAccountOwner    = fmt.Errorf("%w: account does not belong to the current user", ErrAuthorization)
	ErrInsufficientFunds  = fmt.Errorf("%w: insufficient funds", ErrValidation)
	ErrUsernameTaken      = fmt.Errorf("%w: username already exists", ErrDuplicate)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func persistencef(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
