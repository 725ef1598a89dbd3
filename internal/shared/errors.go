package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced account, ticket or result does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoSession indicates an operation requiring an authenticated session
	// was attempted without one.
	ErrNoSession = errors.New("no active session")
	// ErrForbidden indicates the caller lacks the required role or grant.
	ErrForbidden = errors.New("forbidden")
	// ErrCSRFTokenMissing occurs when the CSRF token is missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// Registration failure causes.
const (
	RegistrationEmailInUse   = "email-in-use"
	RegistrationWeakPassword = "weak-password"
	RegistrationInvalidEmail = "invalid-email"
)

// Authentication failure causes.
const (
	AuthWrongPassword = "wrong-password"
	AuthUnknownUser   = "unknown-user"
	AuthInvalidEmail  = "invalid-email"
	AuthRateLimited   = "rate-limited"
)

// RegistrationError describes a sign-up failure. Each cause carries a
// distinct user-facing message.
type RegistrationError struct {
	Cause string
}

func (e *RegistrationError) Error() string {
	switch e.Cause {
	case RegistrationEmailInUse:
		return "an account with this email already exists"
	case RegistrationWeakPassword:
		return "password must be at least 8 characters"
	case RegistrationInvalidEmail:
		return "email address is not valid"
	default:
		return "registration failed"
	}
}

// AuthenticationError describes a login or password-reset failure.
type AuthenticationError struct {
	Cause string
}

func (e *AuthenticationError) Error() string {
	switch e.Cause {
	case AuthWrongPassword:
		return "email or password is incorrect"
	case AuthUnknownUser:
		return "no account exists for this email"
	case AuthInvalidEmail:
		return "email address is not valid"
	case AuthRateLimited:
		return "too many attempts, try again later"
	default:
		return "authentication failed"
	}
}

// StoreError wraps an I/O failure from the backing store, including partial
// multi-write failures. The original error is preserved for errors.Is/As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
