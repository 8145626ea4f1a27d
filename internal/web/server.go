package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/blockedby/finlog/internal/guard"
	"github.com/blockedby/finlog/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds server configuration
type Config struct {
	Port           int
	AllowedOrigins []string
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *Config
	listener   net.Listener
	hub        *Hub
	gatherer   prometheus.Gatherer
	log        *logger.Logger
	extra      []func(http.Handler) http.Handler
	owner      func(*http.Request) string
}

// Option configures a Server.
type Option func(*Server)

// WithHub serves the websocket endpoint from hub.
func WithHub(hub *Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// WithMetrics exposes gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMiddleware appends mw after the built-in middleware, before any
// route is registered.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.extra = append(s.extra, mw...)
	}
}

// WithOwner names the browser a websocket connection belongs to. Without
// it connections only receive broadcasts.
func WithOwner(fn func(*http.Request) string) Option {
	return func(s *Server) {
		s.owner = fn
	}
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config, opts ...Option) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		config: cfg,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(middleware.Compress(5))

	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept", "Content-Type", "HX-Request",
				"X-Telegram-Init-Data", "X-Telegram-Platform",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	s.router.Use(SameOrigin(s.config.AllowedOrigins))

	for _, mw := range s.extra {
		s.router.Use(mw)
	}
}

func (s *Server) setupRoutes() {
	// WebSocket
	if s.hub != nil {
		s.router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			var owner string
			if s.owner != nil {
				owner = s.owner(r)
			}
			ServeWs(s.hub, owner, w, r)
		})
	}

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Health endpoint
	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.httpServer.Serve(listener)
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// BaseURL returns the server's base URL
func (s *Server) BaseURL() string {
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}

// RegisterPagesHandler registers HTML pages, each behind the guard for its
// zone. resolve finds the session of the requesting browser; loading is
// shown while that session is still being resolved.
func (s *Server) RegisterPagesHandler(handler interface{}, resolve guard.Resolver, policy guard.Policy) {
	type pagesHandler interface {
		Landing(w http.ResponseWriter, r *http.Request)
		Telegram(w http.ResponseWriter, r *http.Request)
		Login(w http.ResponseWriter, r *http.Request)
		Register(w http.ResponseWriter, r *http.Request)
		ForgotPassword(w http.ResponseWriter, r *http.Request)
		ResetPassword(w http.ResponseWriter, r *http.Request)
		Dashboard(w http.ResponseWriter, r *http.Request)
		Expenses(w http.ResponseWriter, r *http.Request)
		Schedules(w http.ResponseWriter, r *http.Request)
		Analytics(w http.ResponseWriter, r *http.Request)
		Loading(w http.ResponseWriter, r *http.Request)
	}

	h, ok := handler.(pagesHandler)
	if !ok {
		return
	}
	loading := http.HandlerFunc(h.Loading)

	s.router.Group(func(r chi.Router) {
		r.Use(policy.MiddlewareFor(resolve, guard.ZonePublic, loading))
		r.Get("/", h.Landing)
		r.Get("/telegram", h.Telegram)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(policy.MiddlewareFor(resolve, guard.ZoneAuth, loading))
		r.Get("/login", h.Login)
		r.Get("/register", h.Register)
		r.Get("/forgot-password", h.ForgotPassword)
		r.Get("/reset-password", h.ResetPassword)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(policy.MiddlewareFor(resolve, guard.ZoneProtected, loading))
		r.Get("/dashboard", h.Dashboard)
		r.Get("/expenses", h.Expenses)
		r.Get("/schedules", h.Schedules)
		r.Get("/analytics", h.Analytics)
	})
}

// RegisterFormsHandler registers the auth form posts.
func (s *Server) RegisterFormsHandler(handler interface{}) {
	type formsHandler interface {
		Login(w http.ResponseWriter, r *http.Request)
		Register(w http.ResponseWriter, r *http.Request)
		ForgotPassword(w http.ResponseWriter, r *http.Request)
		ResetPassword(w http.ResponseWriter, r *http.Request)
		Logout(w http.ResponseWriter, r *http.Request)
		TelegramCallback(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(formsHandler); ok {
		s.router.Post("/login", h.Login)
		s.router.Post("/register", h.Register)
		s.router.Post("/forgot-password", h.ForgotPassword)
		s.router.Post("/reset-password", h.ResetPassword)
		s.router.Post("/logout", h.Logout)
		s.router.Get("/auth/telegram/callback", h.TelegramCallback)
	}
}

// MountAPI mounts an http.Handler (the JSON API) under /api.
func (s *Server) MountAPI(h http.Handler) {
	s.router.Mount("/api", h)
}

// Router returns the underlying Chi router for external route mounting.
func (s *Server) Router() *chi.Mux {
	return s.router
}
