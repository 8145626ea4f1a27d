// Package api exposes the auth controller as a JSON API with generated
// OpenAPI documentation.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-fuego/fuego"
	"github.com/go-fuego/fuego/option"
)

// Server represents the Fuego API server.
type Server struct {
	fuego    *fuego.Server
	services ServiceFunc
}

// ServiceFunc returns the auth service of the browser a request belongs to.
type ServiceFunc func(ctx context.Context) (AuthService, bool)

// Single serves every request from svc.
func Single(svc AuthService) ServiceFunc {
	return func(context.Context) (AuthService, bool) { return svc, true }
}

// Config holds API server configuration.
type Config struct {
	Port        int
	Title       string
	Description string
	Version     string
}

// NewServer creates the API. It is served by mounting Handler into the web
// router rather than listening on its own.
func NewServer(cfg *Config, services ServiceFunc) *Server {
	s := fuego.NewServer(
		fuego.WithAddr(fmt.Sprintf(":%d", cfg.Port)),
		fuego.WithEngineOptions(
			fuego.WithOpenAPIConfig(fuego.OpenAPIConfig{
				PrettyFormatJSON: true,
				JSONFilePath:     "openapi.json",
				SwaggerURL:       "/docs",
				SpecURL:          "/openapi.json",
				UIHandler: func(specURL string) http.Handler {
					return ScalarHandler(specURL, cfg.Title, cfg.Description)
				},
			}),
		),
	)

	s.OpenAPI.Description().Info.Title = cfg.Title
	s.OpenAPI.Description().Info.Description = cfg.Description
	s.OpenAPI.Description().Info.Version = cfg.Version

	// auth state must never come from a cache
	fuego.Use(s, middleware.NoCache)

	srv := &Server{
		fuego:    s,
		services: services,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) registerRoutes() {
	fuego.Get(s.fuego, "/api/health", s.healthCheck,
		option.Summary("Health Check"),
		option.Description("Returns the health status of the API"),
		option.Tags("System"),
	)

	authGroup := fuego.Group(s.fuego, "/api/v1/auth",
		option.Tags("Authentication"),
	)

	fuego.Get(authGroup, "/state", s.getState,
		option.Summary("Get Auth State"),
		option.Description("Returns the session and the auth flow state"),
	)

	fuego.Post(authGroup, "/login", s.login,
		option.Summary("Log In"),
		option.Description("Signs in with email and password"),
	)

	fuego.Post(authGroup, "/register", s.register,
		option.Summary("Register"),
		option.Description("Creates an account and signs in"),
	)

	fuego.Post(authGroup, "/telegram", s.telegramSignIn,
		option.Summary("Telegram Mini-App Sign-In"),
		option.Description("Reports the Mini-App environment; signs in silently when it carries a new Telegram identity"),
	)

	fuego.Post(authGroup, "/telegram/retry", s.telegramRetry,
		option.Summary("Retry Telegram Sign-In"),
		option.Description("Retries the silent sign-in even for an identity that already failed"),
	)

	fuego.Post(authGroup, "/telegram/widget", s.telegramWidget,
		option.Summary("Telegram Login Widget Sign-In"),
		option.Description("Signs in with the payload of the browser login widget"),
	)

	fuego.Post(authGroup, "/password/forgot", s.forgotPassword,
		option.Summary("Request Password Reset"),
		option.Description("Sends a password reset link to the address"),
	)

	fuego.Post(authGroup, "/password/reset", s.resetPassword,
		option.Summary("Reset Password"),
		option.Description("Sets a new password using the emailed token"),
	)

	fuego.Post(authGroup, "/logout", s.logout,
		option.Summary("Log Out"),
		option.Description("Ends the session from any state"),
	)
}

// service resolves the request's auth service.
func (s *Server) service(ctx context.Context) (AuthService, error) {
	if s.services != nil {
		if svc, ok := s.services(ctx); ok && svc != nil {
			return svc, nil
		}
	}
	return nil, fuego.UnauthorizedError{Detail: "no client session"}
}

// Handler returns the API as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.fuego.Mux
}

// MountDocsOn mounts the OpenAPI documentation routes (/docs, /openapi.json)
// on a Chi router. This allows using Fuego's OpenAPI generation with an
// existing router.
func (s *Server) MountDocsOn(r interface {
	Get(pattern string, handlerFn http.HandlerFunc)
}, title, description string) {
	scalarHandler := ScalarHandler("/openapi.json", title, description)
	r.Get("/docs", scalarHandler.ServeHTTP)

	r.Get("/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.fuego.OpenAPI.Description()); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	})
}
