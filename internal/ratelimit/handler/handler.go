// Package handler exposes the ratelimit module over HTTP: operator routes
// under /admin and login-attempt probes under /auth.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service,AuditLog

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"abuseguard/internal/ratelimit/models"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/audit"
	"abuseguard/pkg/platform/httputil"
	"abuseguard/pkg/requestcontext"
)

const (
	defaultAuditEvents = 100
	maxAuditEvents     = 1000
)

type Service interface {
	ValidateLoginAttempt(ctx context.Context, identifier, ip string) error
	RecordFailedAttempt(ctx context.Context, identifier, ip, userAgent string) error
	ClearFailedAttempts(ctx context.Context, identifier string) error
	CheckAccountLockout(ctx context.Context, identifier string) (*models.AccountLockout, error)
	GetFailedAttemptCount(ctx context.Context, identifier string) (int, error)
	UnlockAccount(ctx context.Context, identifier string) error
	GetLockoutStats(ctx context.Context) (*models.LockoutStats, error)
	ResetBucket(ctx context.Context, clientID string, class models.EndpointClass) error
}

// AuditLog is the in-process audit buffer read by the admin routes.
type AuditLog interface {
	Recent(limit int) []audit.Event
}

type Handler struct {
	service  Service
	auditLog AuditLog
	logger   *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// WithAuditLog enables GET /admin/audit/events.
func (h *Handler) WithAuditLog(log AuditLog) *Handler {
	h.auditLog = log
	return h
}

// RegisterAdmin mounts the operator routes. Callers wrap r with admin
// authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/lockouts/stats", h.HandleLockoutStats)
	r.Get("/admin/lockouts/{identifier}", h.HandleLockoutStatus)
	r.Post("/admin/lockouts/unlock", h.HandleUnlock)
	r.Post("/admin/rate-limit/reset", h.HandleResetBucket)
	if h.auditLog != nil {
		r.Get("/admin/audit/events", h.HandleAuditEvents)
	}
}

// RegisterLogin mounts the probes an authentication service calls around
// its credential check.
func (h *Handler) RegisterLogin(r chi.Router) {
	r.Post("/auth/login-attempts/validate", h.HandleValidateLoginAttempt)
	r.Post("/auth/login-attempts/failure", h.HandleLoginFailure)
	r.Post("/auth/login-attempts/success", h.HandleLoginSuccess)
}

// HandleLockoutStats implements GET /admin/lockouts/stats.
func (h *Handler) HandleLockoutStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.GetLockoutStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read lockout stats",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleLockoutStatus implements GET /admin/lockouts/{identifier}.
func (h *Handler) HandleLockoutStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, err := url.PathUnescape(chi.URLParam(r, "identifier"))
	identifier := models.NormalizeIdentifier(raw)
	if err != nil || identifier == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid identifier"))
		return
	}

	lockout, err := h.service.CheckAccountLockout(ctx, identifier)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	count, err := h.service.GetFailedAttemptCount(ctx, identifier)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.LockoutStatusResponse{
		Identifier:     identifier,
		Locked:         lockout != nil,
		FailedAttempts: count,
		Lockout:        lockout,
	})
}

// HandleUnlock implements POST /admin/lockouts/unlock.
//
// Input: { "identifier": "user@example.com" }
// Output: 204 No Content
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndValidate[models.UnlockRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.UnlockAccount(ctx, req.Identifier); err != nil {
		h.logger.ErrorContext(ctx, "failed to unlock account",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResetBucket implements POST /admin/rate-limit/reset.
//
// Input: { "client_id": "203.0.113.7", "class": "search" }
// Output: 204 No Content
func (h *Handler) HandleResetBucket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndValidate[models.ResetBucketRequest](w, r, h.logger)
	if !ok {
		return
	}

	class, err := models.ParseEndpointClass(req.Class)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		return
	}
	if err := h.service.ResetBucket(ctx, req.ClientID, class); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset rate limit bucket",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAuditEvents implements GET /admin/audit/events?limit=N, newest first.
func (h *Handler) HandleAuditEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditEvents
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxAuditEvents)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": h.auditLog.Recent(limit)})
}

// HandleValidateLoginAttempt implements POST /auth/login-attempts/validate.
// 204 admits the attempt; 429 and 403 carry a LoginRejectionResponse.
func (h *Handler) HandleValidateLoginAttempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndValidate[models.LoginAttemptRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.ValidateLoginAttempt(ctx, req.Identifier, requestcontext.ClientIP(ctx)); err != nil {
		WriteLoginRejection(w, requestcontext.Now(ctx), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLoginFailure implements POST /auth/login-attempts/failure.
func (h *Handler) HandleLoginFailure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndValidate[models.LoginAttemptRequest](w, r, h.logger)
	if !ok {
		return
	}

	err := h.service.RecordFailedAttempt(ctx, req.Identifier, requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record login failure",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLoginSuccess implements POST /auth/login-attempts/success.
func (h *Handler) HandleLoginSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndValidate[models.LoginAttemptRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.ClearFailedAttempts(ctx, req.Identifier); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WriteLoginRejection writes a *models.LoginRejection as 429 or 403 with a
// Retry-After header. Any other error goes through httputil.WriteError.
func WriteLoginRejection(w http.ResponseWriter, now time.Time, err error) {
	var rejection *models.LoginRejection
	if !errors.As(err, &rejection) {
		httputil.WriteError(w, err)
		return
	}

	body := &models.LoginRejectionResponse{
		Error:      httputil.DomainCodeToHTTPCode(rejection.Code),
		Message:    rejection.Message,
		Reason:     rejection.Reason,
		RetryAfter: rejection.RetryAfterSeconds(),
	}
	if !rejection.LockedUntil.IsZero() {
		lockedUntil := rejection.LockedUntil
		body.LockedUntil = &lockedUntil
		body.RemainingMinutes = int(math.Ceil(lockedUntil.Sub(now).Minutes()))
	}

	w.Header().Set(models.HeaderRetryAfter, strconv.Itoa(body.RetryAfter))
	httputil.WriteJSON(w, httputil.DomainCodeToHTTPStatus(rejection.Code), body)
}
