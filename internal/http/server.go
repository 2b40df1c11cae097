package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

// Server serves the ledger UI. All state lives in the LedgerService.
type Server struct {
	http.Server
	templates *template.Template
	ledger    *services.LedgerService
	currency  string
	logger    *applog.Logger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	ready     func(context.Context) error
	started   time.Time

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithCurrency sets the ISO 4217 code amounts are displayed in.
func WithCurrency(code string) Option {
	return func(s *Server) {
		if code != "" {
			s.currency = code
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent(applog.ComponentHTTP)
		}
	}
}

// WithReadinessCheck adds a dependency probe to /readyz, typically a store ping.
func WithReadinessCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithRateLimit overrides the limits applied to mutating requests.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		s.limiter.Stop()
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ledger *services.LedgerService, opts ...Option) *Server {
	s := &Server{
		ledger:   ledger,
		currency: "USD",
		logger:   applog.Discard(),
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err, applog.FieldComponent, applog.ComponentTemplate)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssets(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /ui/ledger", s.handleLedgerPartial)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /transactions/clear", s.handleClearTransactions)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	ips := security.NewClientIPResolver()
	s.tracer = trace.NewMiddleware(s.logger, ips.ClientIP)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many changes, please wait a minute.").
			Header("Retry-After", "60").
			Write(w)
	})(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
