package main

import (
	"context"
	"log/slog"

	"abuseguard/internal/platform/privacy"
	"abuseguard/internal/ratelimit/models"
)

// logNotifier satisfies ports.Notifier until an outbound mail channel exists.
// It only records that the owner would have been told.
type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) NotifyLocked(ctx context.Context, lockout *models.AccountLockout) error {
	n.logger.InfoContext(ctx, "account lock notification queued",
		"identifier", privacy.PseudonymizeIdentifier(lockout.Identifier),
		"reason", lockout.Reason.String(),
		"locked_until", lockout.LockedUntil,
	)
	return nil
}
