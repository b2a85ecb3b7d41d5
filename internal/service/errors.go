// Package service holds the authentication and password reset flows.
// Handlers translate the errors below into notices.
package service

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown username and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAlreadyRegistered is returned when the username or email is taken.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrValidation marks input problems.  The concrete error is a
	// ValidationError carrying the notice to show.
	ErrValidation = errors.New("validation failed")
)

// ValidationError is a user-facing input error.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Notices shared with the handlers.
const (
	MsgFieldsRequired   = "Username, email and password are required."
	MsgPasswordTooShort = "Password must be at least 8 characters."
	MsgPasswordMismatch = "Passwords do not match."
	MsgEmailRequired    = "Please enter your email address."
)

// MinPasswordLen applies to registration and password reset.
const MinPasswordLen = 8
