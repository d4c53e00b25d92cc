// Package crashreport forwards deployment defects and recovered panics to
// Sentry. With no DSN configured every method is a no-op, so callers never
// need to check whether reporting is enabled.
package crashreport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"abuseguard/pkg/requestcontext"
)

type Options struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// Reporter is safe for concurrent use. The zero value and a nil *Reporter
// are both disabled reporters.
type Reporter struct {
	hub *sentry.Hub
}

// New initialises a Sentry client. An empty DSN returns a disabled reporter.
func New(opts Options) (*Reporter, error) {
	if opts.DSN == "" {
		return &Reporter{}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		SampleRate:       opts.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureError reports err with the request id and the given tags.
func (r *Reporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}
	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		if id := requestcontext.RequestID(ctx); id != "" {
			scope.SetTag("request_id", id)
		}
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

// ReportPanic matches request.PanicReporter.
func (r *Reporter) ReportPanic(req *http.Request, recovered any) {
	if !r.Enabled() {
		return
	}
	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("panic", fmt.Sprint(recovered))
		hub.CaptureMessage("panic in request")
	})
}

// Flush waits up to timeout for buffered events to be sent.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}
