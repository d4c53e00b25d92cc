// Package requestcontext holds the request-scoped values shared by middleware,
// services, and stores: the request's "now", its correlation id, and the
// client metadata resolved at the edge.
//
// Every accessor has a safe fallback so workers, tests, and library callers
// that never pass through HTTP middleware still get usable values.
package requestcontext

import (
	"context"
	"time"
)

type (
	timeKey       struct{}
	requestIDKey  struct{}
	clientIPKey   struct{}
	userAgentKey  struct{}
	adminActorKey struct{}
)

// WithTime pins "now" for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the pinned request time, or the wall clock when none is set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation id or "" outside a request.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithClientMetadata stores the resolved client IP and raw User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithAdminActor records which operator performed an admin action.
func WithAdminActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, adminActorKey{}, actor)
}

func AdminActor(ctx context.Context) string {
	if a, ok := ctx.Value(adminActorKey{}).(string); ok {
		return a
	}
	return ""
}
