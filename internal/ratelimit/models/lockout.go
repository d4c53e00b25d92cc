package models

import (
	"math"
	"time"
)

// FailedAttempt is one failed authentication for an identifier.
type FailedAttempt struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	Device      string    `json:"device"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// LockoutReason records which rule locked an account.
type LockoutReason string

const (
	ReasonMaxAttempts        LockoutReason = "max_attempts"
	ReasonSuspiciousActivity LockoutReason = "suspicious_activity"
)

func (r LockoutReason) String() string { return string(r) }

func (r LockoutReason) IsValid() bool {
	return r == ReasonMaxAttempts || r == ReasonSuspiciousActivity
}

// AccountLockout is the single active lock for an identifier. A record whose
// LockedUntil has passed is treated as absent.
type AccountLockout struct {
	Identifier       string        `json:"identifier"`
	LockedAt         time.Time     `json:"locked_at"`
	LockedUntil      time.Time     `json:"locked_until"`
	FailedAttempts   int           `json:"failed_attempts"` // count at time of lock
	Reason           LockoutReason `json:"reason"`
	NotificationSent bool          `json:"notification_sent"`
}

func (l *AccountLockout) IsActive(now time.Time) bool {
	return now.Before(l.LockedUntil)
}

func (l *AccountLockout) Remaining(now time.Time) time.Duration {
	if !l.IsActive(now) {
		return 0
	}
	return l.LockedUntil.Sub(now)
}

// RemainingMinutes rounds up so a client is never told "0 minutes" while
// still locked.
func (l *AccountLockout) RemainingMinutes(now time.Time) int {
	return int(math.Ceil(l.Remaining(now).Minutes()))
}

// LockoutStats is the read-only monitoring view.
type LockoutStats struct {
	TotalLocked         int      `json:"total_locked"`
	LockedAccounts      []string `json:"locked_accounts"`
	TotalFailedAttempts int      `json:"total_failed_attempts"`
}
