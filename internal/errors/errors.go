package errors

import (
	"errors"
)

// Common error types for the admin portal
var (
	// Session errors
	ErrNoSession           = errors.New("no active session")
	ErrSessionNotPersisted = errors.New("session not persisted")
	ErrInvalidSession      = errors.New("invalid session")

	// Backend errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBadRequest         = errors.New("bad request")
	ErrServer             = errors.New("server error")
	ErrNetwork            = errors.New("network error")
	ErrUnexpected         = errors.New("unexpected error")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, nil when all are nil
func Join(errs ...error) error {
	return errors.Join(errs...)
}
