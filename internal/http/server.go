// Package http exposes the fintrack JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/provision"
	"fintrack/internal/report"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

// Collaborators the handlers call. The concrete services satisfy them.
type (
	Provisioner interface {
		Run(ctx context.Context, userID string) (provision.Result, error)
	}

	Ledger interface {
		CreateTransaction(ctx context.Context, ownerID string, in services.TransactionInput) (core.Transaction, error)
		CreateTransfer(ctx context.Context, ownerID string, in services.TransferInput) (services.TransferResult, error)
	}

	PreferenceCreator interface {
		CreatePreference(ctx context.Context, ownerID string, in services.PreferenceInput) (core.UserPreference, error)
	}

	ReportBuilder interface {
		Build(ctx context.Context, ownerID string, from, to core.Date) (report.Snapshot, error)
	}
)

// Deps are the server's collaborators. Ready may be nil.
type Deps struct {
	Provisioner   Provisioner
	Ledger        Ledger
	Preferences   PreferenceCreator
	Reports       ReportBuilder
	Currencies    store.CurrencyReader
	Notifications store.NotificationStore
	Ready         func(ctx context.Context) error
}

// Options tune the transport.
type Options struct {
	RateLimitRPM   int
	RequestTimeout time.Duration
	// Location decides the default report month.
	Location *time.Location
	Now      func() time.Time
	Logger   *applog.Logger
}

type Server struct {
	http.Server
	deps    Deps
	opts    Options
	logger  *applog.Logger
	reports *report.LatestTracker

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		deps:      deps,
		opts:      opts,
		logger:    logger,
		reports:   report.NewLatestTracker(0, 0, 0),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		detector:  security.NewDetector(),
		startedAt: time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	api.HandleFunc("POST /api/session/provision", s.handleProvision)
	api.HandleFunc("POST /api/preferences", s.handleCreatePreference)
	api.HandleFunc("GET /api/report", s.handleReport)
	api.HandleFunc("GET /api/report/export", s.handleReportExport)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("POST /api/transfers", s.handleCreateTransfer)
	api.HandleFunc("GET /api/currencies", s.handleCurrencies)
	api.HandleFunc("GET /api/notifications", s.handleNotifications)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Code: "rate_limited", RequestID: trace.GetRequestID(r.Context())})
	})(http.TimeoutHandler(api, opts.RequestTimeout, `{"error":"request timed out","code":"timeout"}`))
	mux.Handle("/api/", limited)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// chain applies the outer middleware; the last wrapper runs first.
func (s *Server) chain(h http.Handler) http.Handler {
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(s.logger)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
