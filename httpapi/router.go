package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ciphemic/authcore"
	"github.com/ciphemic/authcore/middleware"
)

// Options configures the HTTP layer. TTLs drive cookie Max-Age and should
// match the token lifetimes the engine was built with.
type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// SecureCookies marks auth cookies Secure; off only for local dev.
	SecureCookies bool

	// Registry receives the server's metrics. Defaults to a fresh registry.
	Registry *prometheus.Registry
}

// Server is the HTTP front of the auth engine.
type Server struct {
	engine   *authcore.Engine
	cookies  cookieWriter
	validate *validator.Validate
	metrics  *metrics
	registry *prometheus.Registry
}

// NewServer builds a Server around an engine.
func NewServer(engine *authcore.Engine, opts Options) *Server {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Server{
		engine: engine,
		cookies: cookieWriter{
			secure:     opts.SecureCookies,
			accessTTL:  opts.AccessTTL,
			refreshTTL: opts.RefreshTTL,
		},
		validate: validator.New(),
		metrics:  newMetrics(registry),
		registry: registry,
	}
}

// Router assembles the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.countRequests)
	r.Use(chimw.Recoverer)

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Get("/refresh", s.handleRefresh)
	r.Get("/logout", s.handleLogout)
	r.Get("/email/verify/{code}", s.handleVerifyEmail)
	r.Post("/forgot-password", s.handleForgotPassword)
	r.Get("/reset-password/{id}/{token}", s.handleVerifyReset)
	r.Post("/reset-password/{id}/{token}", s.handleCompleteReset)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(s.engine))
		r.Post("/send-verification-email/{userId}", s.handleResendVerification)
		r.Get("/user-sessions", s.handleListSessions)
		r.Delete("/delete-user-sessions/{id}", s.handleDeleteSession)
	})

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.observeRequest(r.Method, route)
	})
}
