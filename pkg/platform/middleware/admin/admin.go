// Package admin guards operator-only routes with a shared admin token.
// Only the token's bcrypt hash is configured; the plaintext never lives in
// process configuration.
package admin

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/httputil"
	"abuseguard/pkg/requestcontext"
	"abuseguard/pkg/secrets"
)

const (
	TokenHeader = "X-Admin-Token"
	ActorHeader = "X-Admin-Actor-ID"

	maxActorLength = 128
)

// RequireAdminToken rejects requests whose X-Admin-Token does not match
// tokenHash with 401. An accepted request carries the optional
// X-Admin-Actor-ID in its context for audit attribution.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if err := secrets.Verify(r.Header.Get(TokenHeader), tokenHash); err != nil {
				logger.WarnContext(ctx, "admin token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"error_code", string(dErrors.CodeOf(err)),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" && len(actor) <= maxActorLength {
				ctx = requestcontext.WithAdminActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
