package models

import (
	"errors"
	"fmt"
	"time"

	dErrors "abuseguard/pkg/domain-errors"
)

// ErrUnknownEndpointClass is wrapped by configuration errors for classes with
// no configured limit. It indicates a deployment defect, not throttling.
var ErrUnknownEndpointClass = errors.New("unknown endpoint class")

// LoginRejection is returned by login validation when an attempt must not
// proceed. Code is too_many_requests for IP throttling and forbidden for a
// locked account.
type LoginRejection struct {
	Code        dErrors.Code
	Reason      LockoutReason // empty for IP throttling
	RetryAfter  time.Duration
	LockedUntil time.Time // zero for IP throttling
	Message     string
}

func (e *LoginRejection) Error() string {
	return e.Message
}

// Unwrap exposes the domain code so dErrors.HasCode and httputil.WriteError
// work on rejections.
func (e *LoginRejection) Unwrap() error {
	return &dErrors.Error{Code: e.Code, Message: e.Message}
}

// RetryAfterSeconds rounds up, minimum 1.
func (e *LoginRejection) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// NewIPThrottledRejection reports an address that exceeded its attempt window.
func NewIPThrottledRejection(retryAfter time.Duration) *LoginRejection {
	return &LoginRejection{
		Code:       dErrors.CodeTooManyRequests,
		RetryAfter: retryAfter,
		Message:    "Too many login attempts from this address. Please try again later.",
	}
}

// NewLockedRejection reports an active lockout with a reason-specific message.
func NewLockedRejection(lockout *AccountLockout, now time.Time) *LoginRejection {
	minutes := lockout.RemainingMinutes(now)
	var msg string
	switch lockout.Reason {
	case ReasonSuspiciousActivity:
		msg = fmt.Sprintf("Account temporarily locked due to suspicious activity. Try again in %d minute(s).", minutes)
	default:
		msg = fmt.Sprintf("Account temporarily locked due to too many failed login attempts. Try again in %d minute(s).", minutes)
	}
	return &LoginRejection{
		Code:        dErrors.CodeForbidden,
		Reason:      lockout.Reason,
		RetryAfter:  lockout.Remaining(now),
		LockedUntil: lockout.LockedUntil,
		Message:     msg,
	}
}
