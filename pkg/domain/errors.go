package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Authentication errors
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountDisabled      = errors.New("account disabled")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked due to too many failed login attempts")
	ErrForbidden            = errors.New("forbidden")
)

// Token errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenNotFound = errors.New("token not found")
)

// Credential and validation errors
var (
	ErrPasswordPolicy    = errors.New("password does not meet requirements")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrCorruptCredential = errors.New("corrupt stored credential")
)

// Two-factor errors
var (
	ErrTFARequired       = errors.New("two-factor code required")
	ErrInvalidTFACode    = errors.New("invalid two-factor code")
	ErrTFANotEnabled     = errors.New("two-factor authentication is not enabled")
	ErrTFAAlreadyEnabled = errors.New("two-factor authentication is already enabled")
	ErrTFANotPending     = errors.New("no pending two-factor enrollment")
)

// ErrRateLimited is returned when a request exceeds a throttle.
var ErrRateLimited = errors.New("too many requests")

// LockedError wraps ErrAccountLocked with the time the lock expires so
// callers can surface a retry-after hint.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return ErrAccountLocked.Error()
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

// RetryAfter returns the remaining lock duration relative to now,
// rounded up to a whole second.
func (e *LockedError) RetryAfter(now time.Time) time.Duration {
	d := e.Until.Sub(now)
	if d < 0 {
		return 0
	}
	return d.Round(time.Second)
}

// NewLockedError creates a LockedError for an account locked until the given time.
func NewLockedError(until time.Time) *LockedError {
	return &LockedError{Until: until}
}

// HTTPStatus classifies a domain error as an HTTP status code.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrAccountAlreadyExists),
		errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTFANotEnabled),
		errors.Is(err, ErrTFAAlreadyEnabled),
		errors.Is(err, ErrTFANotPending):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTFARequired),
		errors.Is(err, ErrInvalidTFACode):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrAccountNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PolicyViolation wraps ErrPasswordPolicy with a human-readable reason.
func PolicyViolation(reason string) error {
	return fmt.Errorf("%w: %s", ErrPasswordPolicy, reason)
}
