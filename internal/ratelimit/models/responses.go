package models

import "time"

// RateLimitExceededResponse is the 429 body for token-bucket rejections.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// LoginRejectionResponse is the 429/403 body for login rejections.
type LoginRejectionResponse struct {
	Error            string        `json:"error"`
	Message          string        `json:"message"`
	Reason           LockoutReason `json:"reason,omitempty"`
	RetryAfter       int           `json:"retry_after"`
	LockedUntil      *time.Time    `json:"locked_until,omitempty"`
	RemainingMinutes int           `json:"remaining_minutes,omitempty"`
}

// LockoutStatusResponse answers GET /admin/lockouts/{identifier}.
type LockoutStatusResponse struct {
	Identifier     string          `json:"identifier"`
	Locked         bool            `json:"locked"`
	FailedAttempts int             `json:"failed_attempts"`
	Lockout        *AccountLockout `json:"lockout,omitempty"`
}
