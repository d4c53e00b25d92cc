// Package audit defines security audit events and an in-process sink for
// them. Events are not durable; a restart drops them.
package audit

import (
	"time"
)

// Event records one security-relevant action. Subject holds the raw handle
// or address; events stay in process and are redacted before logging.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

type Action string

const (
	ActionAccountLocked     Action = "account_locked"
	ActionAccountUnlocked   Action = "account_unlocked"
	ActionLockoutExpired    Action = "account_lockout_expired"
	ActionLoginBlocked      Action = "login_attempt_blocked"
	ActionIPThrottled       Action = "login_ip_throttled"
	ActionRateLimitExceeded Action = "rate_limit_exceeded"
	ActionBucketReset       Action = "rate_limit_bucket_reset"
	ActionAttemptsCleared   Action = "failed_attempts_cleared"
)

func (a Action) String() string { return string(a) }
