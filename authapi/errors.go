package authapi

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
)

// Kind classifies a failed credential exchange by response shape.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindBadRequest         Kind = "bad_request"
	KindServerError        Kind = "server_error"
	KindNetworkError       Kind = "network_error"
	KindUnexpected         Kind = "unexpected_error"
)

var userMessages = map[Kind]string{
	KindInvalidCredentials: "Invalid email or password.",
	KindBadRequest:         "The login request was rejected. Check the email and password and try again.",
	KindServerError:        "The server could not complete the login. Please try again later.",
	KindNetworkError:       "Could not reach the server. Check your connection and try again.",
	KindUnexpected:         "An unexpected error occurred during login.",
}

var sentinels = map[Kind]error{
	KindInvalidCredentials: apperrors.ErrInvalidCredentials,
	KindBadRequest:         apperrors.ErrBadRequest,
	KindServerError:        apperrors.ErrServer,
	KindNetworkError:       apperrors.ErrNetwork,
	KindUnexpected:         apperrors.ErrUnexpected,
}

// LoginError is returned by Client.Login for every failed exchange.
type LoginError struct {
	Kind   Kind
	Status int    // HTTP status, zero when no response arrived
	Detail string // Server-provided message, if any
	Err    error  // Underlying transport or decode error
}

func (e *LoginError) Error() string {
	msg := fmt.Sprintf("login failed: %s", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *LoginError) Unwrap() []error {
	errs := []error{sentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage is the text shown at the login form.
func (e *LoginError) UserMessage() string {
	if msg, ok := userMessages[e.Kind]; ok {
		return msg
	}
	return userMessages[KindUnexpected]
}

// KindForStatus maps a non-2xx login response status onto a failure kind.
func KindForStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindInvalidCredentials
	case status == 400 || status == 422:
		return KindBadRequest
	case status >= 500:
		return KindServerError
	default:
		return KindUnexpected
	}
}
