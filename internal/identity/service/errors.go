package service

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by AuthService wraps exactly one of them; handlers map
// categories to transport status codes with errors.Is.
var (
	// ErrInvalidInput covers malformed or missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthenticationFailed covers bad credentials and invalid, expired or revoked refresh tokens.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrUnprocessable covers conflicts and references to missing entities.
	ErrUnprocessable = errors.New("unprocessable")
	// ErrServiceFailure covers backing store failures. Callers may retry.
	ErrServiceFailure = errors.New("service unavailable")
)

// Sentinel errors for auth service; handler maps them by category.
var (
	ErrInvalidCredentials  = fmt.Errorf("%w: incorrect username or password", ErrAuthenticationFailed)
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", ErrAuthenticationFailed)
	ErrUsernameTaken       = fmt.Errorf("%w: username already exists", ErrUnprocessable)
	ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrUnprocessable)
	ErrSessionNotFound     = fmt.Errorf("%w: session not found", ErrUnprocessable)
	ErrUnknownRole         = fmt.Errorf("%w: unknown role", ErrUnprocessable)
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func unprocessable(msg string) error {
	return fmt.Errorf("%w: %s", ErrUnprocessable, msg)
}

func serviceFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrServiceFailure, op, err)
}
