package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/requestcontext"
	"abuseguard/pkg/validation"
)

// MaxBodyBytes caps JSON request bodies on every decoding endpoint.
const MaxBodyBytes = 64 << 10

// Normalizable request types get Normalize called after decoding and before
// validation.
type Normalizable interface {
	Normalize()
}

// DecodeAndValidate decodes r's JSON body into T, normalises it, and runs the
// struct validator. On failure it writes the error response itself and
// returns false.
//
//	req, ok := httputil.DecodeAndValidate[UnlockRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndValidate[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if n, ok := any(&req).(Normalizable); ok {
		n.Normalize()
	}

	if err := validation.Validate(&req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
