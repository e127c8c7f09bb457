package errors

import (
	"errors"
)

// Common error types for the LabTrack auth subsystem
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user is inactive")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorized       = errors.New("unauthorized")

	// Token errors
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrNoRememberToken = errors.New("no remember token")

	// Registration errors
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")

	// Password recovery errors
	ErrInvalidRecoveryCode = errors.New("invalid recovery code")
	ErrRecoveryCodeLocked  = errors.New("recovery code locked after too many attempts")
	ErrPasswordMismatch    = errors.New("passwords do not match")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
