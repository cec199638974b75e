package core

import (
	"errors"
	"strings"
)

// Sentinel errors mapped to HTTP statuses at the API boundary.
var (
	ErrValidation            = errors.New("validation failed")
	ErrAuthentication        = errors.New("authentication failed")
	ErrSignatureVerification = errors.New("webhook signature verification failed")
	ErrServiceUnavailable    = errors.New("service unavailable")
	ErrUpstream              = errors.New("payment provider request failed")
	ErrSimulationDisabled    = errors.New("simulated billing is disabled")
	ErrPremiumRequired       = errors.New("premium subscription required")
)

// ValidationError names the request fields that were missing or invalid.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// AuthenticationError carries the message shown to the caller. The wrapped
// error, if any, is for logs only.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string { return e.Message }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

func (e *AuthenticationError) Unwrap() error { return e.Err }

// UpstreamError is a payment provider failure whose message is passed through.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Unwrap() error { return e.Err }

var (
	errAuthRequired = &AuthenticationError{Message: "Authentication required"}
)

func invalidToken(err error) error {
	return &AuthenticationError{Message: "Invalid auth token", Err: err}
}
