package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"abuseguard/internal/platform/config"
	"abuseguard/internal/platform/crashreport"
	"abuseguard/internal/platform/health"
	"abuseguard/internal/platform/logger"
	ratelimitConfig "abuseguard/internal/ratelimit/config"
	"abuseguard/internal/ratelimit/handler"
	"abuseguard/internal/ratelimit/metrics"
	rateLimitMW "abuseguard/internal/ratelimit/middleware"
	"abuseguard/internal/ratelimit/models"
	"abuseguard/internal/ratelimit/service/attempttracker"
	"abuseguard/internal/ratelimit/service/authlockout"
	"abuseguard/internal/ratelimit/service/backoff"
	"abuseguard/internal/ratelimit/service/gateway"
	"abuseguard/internal/ratelimit/service/requestlimit"
	attemptStore "abuseguard/internal/ratelimit/store/attempt"
	bucketStore "abuseguard/internal/ratelimit/store/bucket"
	ipwindowStore "abuseguard/internal/ratelimit/store/ipwindow"
	lockoutStore "abuseguard/internal/ratelimit/store/lockout"
	"abuseguard/internal/ratelimit/workers/cleanup"
	"abuseguard/pkg/platform/audit"
	"abuseguard/pkg/platform/circuit"
	adminmw "abuseguard/pkg/platform/middleware/admin"
	"abuseguard/pkg/platform/middleware/metadata"
	"abuseguard/pkg/platform/middleware/request"
)

// auditBufferSize bounds the in-process audit ring served at /admin/audit/events.
const auditBufferSize = 1000

// main wires dependencies and owns the process lifecycle. Business logic
// lives in internal/ratelimit.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

type ratelimitModule struct {
	gateway *gateway.Gateway
	limiter *requestlimit.Service
	worker  *cleanup.Service
	ring    *audit.Ring
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("initializing abuseguard",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"admin_enabled", cfg.Admin.Enabled(),
	)

	reporter, err := crashreport.New(crashreport.Options{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Environment,
		Release:     health.Version,
		SampleRate:  cfg.Sentry.SampleRate,
	})
	if err != nil {
		return err
	}
	defer reporter.Flush(2 * time.Second)

	trusted, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	mod, err := buildRateLimitModule(cfg, log, reporter, metrics.New(prometheus.DefaultRegisterer))
	if err != nil {
		return fmt.Errorf("build ratelimit module: %w", err)
	}

	breaker := circuit.New("ratelimit_store")
	limitMiddleware := rateLimitMW.New(mod.limiter, log, rateLimitMW.WithBreaker(breaker))

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("ratelimit_cleanup", mod.worker.CheckHealth)
	healthHandler.RegisterCheck("ratelimit_store", limitMiddleware.CheckHealth)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Time)
	r.Use(metadata.NewMiddleware(trusted).Handler)
	r.Use(request.Recovery(log, reporter.ReportPanic))
	r.Use(request.Logger(log))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	h := handler.New(mod.gateway, log).WithAuditLog(mod.ring)
	h.RegisterLogin(r)
	registerRateLimitProbes(r, limitMiddleware)

	if cfg.Admin.Enabled() {
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.Admin.RequestsPerMinute, time.Minute))
			r.Use(adminmw.RequireAdminToken(cfg.Admin.TokenHash, log))
			h.RegisterAdmin(r)
		})
	} else {
		log.Warn("admin routes disabled: ADMIN_TOKEN_HASH is not set")
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := mod.worker.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("cleanup worker: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func buildRateLimitModule(cfg *config.Config, log *slog.Logger, reporter *crashreport.Reporter, m *metrics.Metrics) (*ratelimitModule, error) {
	rlCfg := ratelimitConfig.DefaultConfig()
	rlCfg.Cleanup = ratelimitConfig.CleanupConfig{
		Interval:  cfg.Cleanup.Interval,
		Retention: cfg.Cleanup.Retention,
	}

	buckets := bucketStore.New()
	attempts := attemptStore.New()
	lockouts := lockoutStore.New()
	ipWindows := ipwindowStore.New()
	ring := audit.NewRing(auditBufferSize)

	limiter, err := requestlimit.New(buckets,
		requestlimit.WithLogger(log),
		requestlimit.WithAuditPublisher(ring),
		requestlimit.WithConfig(rlCfg),
		requestlimit.WithMetrics(m),
		requestlimit.WithErrorReporter(reporter),
	)
	if err != nil {
		return nil, err
	}

	tracker, err := attempttracker.New(attempts,
		attempttracker.WithLogger(log),
		attempttracker.WithAuditPublisher(ring),
		attempttracker.WithConfig(&rlCfg.Lockout),
		attempttracker.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	engine, err := authlockout.New(lockouts, tracker,
		authlockout.WithLogger(log),
		authlockout.WithAuditPublisher(ring),
		authlockout.WithConfig(&rlCfg.Lockout),
		authlockout.WithMetrics(m),
		authlockout.WithNotifier(&logNotifier{logger: log}),
	)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.New(gateway.Deps{
		Limiter:   limiter,
		Lockouts:  engine,
		Attempts:  tracker,
		Backoff:   backoff.New(rlCfg.Backoff),
		IPWindows: ipWindows,
	},
		gateway.WithLogger(log),
		gateway.WithAuditPublisher(ring),
		gateway.WithConfig(&rlCfg.IPThrottle),
		gateway.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	worker := cleanup.New(cleanup.Sweepers{
		Buckets:   buckets,
		Attempts:  attempts,
		IPWindows: ipWindows,
		Lockouts:  engine,
	},
		cleanup.WithLogger(log),
		cleanup.WithInterval(rlCfg.Cleanup.Interval),
		cleanup.WithRetention(rlCfg.Cleanup.Retention),
		cleanup.WithMetrics(m),
	)

	return &ratelimitModule{
		gateway: gw,
		limiter: limiter,
		worker:  worker,
		ring:    ring,
	}, nil
}

// registerRateLimitProbes mounts GET /ratelimit/{class} for each endpoint
// class. A reverse proxy calls it before forwarding (nginx auth_request);
// 204 admits, 429 rejects, and the X-RateLimit headers are always set.
func registerRateLimitProbes(r chi.Router, mw *rateLimitMW.Middleware) {
	admit := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	for _, class := range models.EndpointClasses() {
		r.With(mw.RateLimit(class)).Get("/ratelimit/"+class.String(), admit)
	}
}
