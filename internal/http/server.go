package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"addebiti/internal/cache"
	"addebiti/internal/metrics"
	"addebiti/internal/middleware/ratelimit"
	"addebiti/internal/middleware/security"
	"addebiti/internal/middleware/trace"
	"addebiti/internal/services"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Options carries the collaborators of the server. Calendar, Metrics,
// Limiter and Readiness are optional.
type Options struct {
	Engine    *services.Engine
	Calendar  *cache.CalendarCache
	Metrics   *metrics.Metrics
	Limiter   *ratelimit.Limiter
	Readiness []ReadinessCheck
}

type Server struct {
	http.Server
	engine    *services.Engine
	calendar  *cache.CalendarCache
	metrics   *metrics.Metrics
	readiness []ReadinessCheck
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		engine:    opts.Engine,
		calendar:  opts.Calendar,
		metrics:   opts.Metrics,
		readiness: opts.Readiness,
	}

	resolver, err := security.NewIPResolver()
	if err != nil {
		slog.Warn("Failed to build IP resolver", "error", err)
	}
	clientIP := func(r *http.Request) string {
		if resolver == nil {
			return r.RemoteAddr
		}
		return resolver.ClientIP(r)
	}

	var observer trace.Observer
	if s.metrics != nil {
		observer = s.metrics
	}

	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(clientIP, observer).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware(clientIP, s.onRateLimited))
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	s.Register(r)

	// Browser clients are served from any origin.
	s.Handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)

	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/payments/{date}", s.handleResolvePayments)
		r.Post("/payments/save", s.handleSavePayment)
		r.Get("/calendar/{year}/{month}", s.handleCalendar)

		r.Get("/services", s.handleListServices)
		r.Post("/services", s.handleCreateService)
		r.Put("/services/{id}", s.handleReplaceService)
		r.Delete("/services/{id}", s.handleDeleteService)

		r.Get("/user/settings", s.handleGetSettings)
		r.Post("/user/accept-terms", s.handleAcceptTerms)
		r.Post("/user/complete-setup", s.handleCompleteSetup)
	})
}

func (s *Server) onRateLimited(r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	if s.metrics != nil {
		s.metrics.IncrementRateLimited()
	}
}
