// Package observability provides audit logging helpers for the ratelimit module.
package observability

import (
	"context"
	"log/slog"
	"net/netip"
	"slices"

	"abuseguard/internal/platform/privacy"
	"abuseguard/internal/ratelimit/ports"
	"abuseguard/pkg/platform/audit"
	"abuseguard/pkg/requestcontext"
)

const (
	DecisionDenied   = "denied"
	DecisionLocked   = "locked"
	DecisionReleased = "released"
)

var decisions = map[audit.Action]string{
	audit.ActionAccountLocked:     DecisionLocked,
	audit.ActionLoginBlocked:      DecisionDenied,
	audit.ActionIPThrottled:       DecisionDenied,
	audit.ActionRateLimitExceeded: DecisionDenied,
	audit.ActionAccountUnlocked:   DecisionReleased,
	audit.ActionLockoutExpired:    DecisionReleased,
	audit.ActionBucketReset:       DecisionReleased,
	audit.ActionAttemptsCleared:   DecisionReleased,
}

// LogAudit writes one structured audit line and forwards the event to
// publisher when one is configured.
//
// The log line never carries raw identifiers or full addresses: values under
// "identifier" are pseudonymised, values under "ip" are anonymised, and
// "client_id" gets whichever fits. The
// published event keeps the raw subject since the in-process sink is not
// persisted.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher ports.AuditPublisher, action audit.Action, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.AdminActor(ctx)
	subject := extractString(attrList, "identifier")
	if subject == "" {
		subject = extractString(attrList, "client_id")
	}
	if subject == "" {
		subject = extractString(attrList, "ip")
	}

	if logger != nil {
		args := redact(attrList)
		if requestID != "" {
			args = append(args, "request_id", requestID)
		}
		if actor != "" {
			args = append(args, "actor", actor)
		}
		args = append(args, "event", action.String(), "log_type", "audit")
		logger.InfoContext(ctx, action.String(), args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action.String(),
		Subject:   subject,
		Actor:     actor,
		Reason:    extractString(attrList, "reason"),
		Decision:  decisions[action],
		RequestID: requestID,
	}); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", action.String(), "error", err)
	}
}

func redact(attrList []any) []any {
	out := slices.Clone(attrList)
	for i := 0; i+1 < len(out); i += 2 {
		key, _ := out[i].(string)
		value, ok := out[i+1].(string)
		if !ok {
			continue
		}
		switch key {
		case "identifier":
			out[i+1] = privacy.PseudonymizeIdentifier(value)
		case "ip":
			out[i+1] = privacy.AnonymizeIP(value)
		case "client_id":
			if _, err := netip.ParseAddr(value); err == nil {
				out[i+1] = privacy.AnonymizeIP(value)
			} else {
				out[i+1] = privacy.PseudonymizeIdentifier(value)
			}
		}
	}
	return out
}

// extractString returns the string value following key in a slog-style
// key/value list.
func extractString(attrList []any, key string) string {
	for i := 0; i+1 < len(attrList); i += 2 {
		if k, ok := attrList[i].(string); ok && k == key {
			if v, ok := attrList[i+1].(string); ok {
				return v
			}
			if v, ok := attrList[i+1].(interface{ String() string }); ok {
				return v.String()
			}
		}
	}
	return ""
}
