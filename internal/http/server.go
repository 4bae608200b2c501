package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "atelier/internal/log"
	"atelier/internal/middleware/ratelimit"
	"atelier/internal/middleware/security"
	"atelier/internal/middleware/trace"
	"atelier/internal/services"
)

// Services groups the application services the handlers call.
type Services struct {
	Clients      *services.ClientService
	Bookkeeping  *services.BookkeepingService
	Finance      *services.FinanceService
	Appointments *services.AppointmentService
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Logger             *applog.Logger
	Location           *time.Location
	RateLimitPerMinute int
	// Backend is checked by /readyz; nil skips the check.
	Backend Pinger
}

// Server wraps http.Server with the atelier API routes and middleware.
type Server struct {
	http.Server

	svc      Services
	loc      *time.Location
	logger   *applog.Logger
	backend  Pinger
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	started  time.Time
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		svc:     svc,
		loc:     loc,
		logger:  logger.WithComponent(applog.ComponentHTTP),
		backend: opts.Backend,
		started: time.Now(),
		now:     time.Now,
	}
	s.detector = security.NewDetector(logger)
	s.tracer = trace.NewMiddleware(logger.WithComponent(applog.ComponentTrace), s.detector.ExtractClientIP)
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimitPerMinute,
		CleanupInterval:   5 * time.Minute,
	})

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/clients", s.handleListClients)
	mux.HandleFunc("POST /api/clients", s.handleCreateClient)
	mux.HandleFunc("GET /api/clients/{id}", s.handleGetClient)
	mux.HandleFunc("PATCH /api/clients/{id}", s.handleUpdateClient)
	mux.HandleFunc("GET /api/clients/{id}/finances", s.handleClientFinances)
	mux.HandleFunc("POST /api/clients/{id}/projects", s.handleAddProject)
	mux.HandleFunc("POST /api/clients/{id}/payments", s.handleRecordPayment)

	mux.HandleFunc("PATCH /api/projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("POST /api/projects/{id}/expenses", s.handleAddProjectExpense)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/finances", s.handleFinances)

	mux.HandleFunc("POST /api/measurements", s.handleCreateMeasurement)
	mux.HandleFunc("PUT /api/measurements/{id}", s.handleUpdateMeasurement)
	mux.HandleFunc("DELETE /api/measurements/{id}", s.handleDeleteMeasurement)

	mux.HandleFunc("GET /api/appointments", s.handleCalendar)
	mux.HandleFunc("POST /api/appointments", s.handleBookAppointment)
	mux.HandleFunc("PATCH /api/appointments/{id}", s.handleRescheduleAppointment)
	mux.HandleFunc("DELETE /api/appointments/{id}", s.handleCancelAppointment)
}

// chain wraps h so that security headers are set first and write requests
// are rate limited last, after they have been traced and given a logger.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.limitWrites(h)
	h = applog.ComponentMiddleware(applog.ComponentHTTP)(h)
	h = applog.RequestIDMiddleware(trace.RequestID)(h)
	h = applog.Middleware(s.logger)(h)
	h = s.tracer.Middleware(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return h
}

// limitWrites applies the per-IP limiter to requests that change state.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown stops the rate limiter cleanup and gracefully shuts the server
// down. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.logger.InfoContext(ctx, "Shutting down HTTP server",
			slog.Int64("requests_served", s.tracer.GetMetrics().TotalRequests),
			slog.Int64("rate_limited", s.limiter.Rejected()),
			slog.Int64("suspicious_requests", s.detector.SuspiciousRequests()))
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
