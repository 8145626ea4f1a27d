package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/finlog/internal/api"
	"github.com/blockedby/finlog/internal/apiclient"
	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/browser"
	"github.com/blockedby/finlog/internal/config"
	"github.com/blockedby/finlog/internal/guard"
	"github.com/blockedby/finlog/internal/launcher"
	"github.com/blockedby/finlog/internal/logger"
	"github.com/blockedby/finlog/internal/metrics"
	"github.com/blockedby/finlog/internal/nats"
	"github.com/blockedby/finlog/internal/publisher"
	"github.com/blockedby/finlog/internal/session"
	"github.com/blockedby/finlog/internal/storage"
	"github.com/blockedby/finlog/internal/web"
	"github.com/blockedby/finlog/internal/web/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Str("api", cfg.APIBaseURL).Msg("starting finlog")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Durable session storage, memory only when unavailable
	var repo *storage.SessionRepository
	db, err := storage.Open(ctx, cfg.StorageDSN)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable, sessions will not survive restarts")
	} else {
		defer db.Close()
		log.Info().Str("driver", db.Driver()).Msg("storage ready")
		repo = storage.NewSessionRepository(db)
	}

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	authMetrics := metrics.New(reg)

	// 6. WebSocket hub
	hub := web.NewHub(cfg.AllowedOrigins...)
	go hub.Run()
	defer hub.Stop()

	// 7. Remote API
	remote := apiclient.New(apiclient.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		RPS:     cfg.APIRPS,
		Burst:   cfg.APIBurst,
	}, log)

	// 8. Optional auth event publishing
	var events auth.EventPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx, nats.AuthStream, []string{nats.AuthSubjects}); err != nil {
				log.Warn().Err(err).Msg("failed to ensure auth stream")
			}
			events = publisher.NewNATSPublisher(nc)
		}
	}

	// 9. One session per browser, named by a signed cookie
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatal().Err(err).Msg("failed to generate session secret")
		}
		log.Warn().Msg("SESSION_SECRET not set, browsers must sign in again after a restart")
	}

	clients := browser.NewRegistry(
		browser.NewSigner(secret, cfg.SessionMaxAge),
		func(_ context.Context, id string) (*browser.Client, error) {
			var persister session.Persister = session.NewMemoryPersister()
			if repo != nil {
				persister = repo.ForClient(id)
			}
			store := session.NewStore(persister, log)

			opts := []auth.Option{
				auth.WithNavigator(web.NewHubNavigator(hub, id)),
				auth.WithMetrics(authMetrics),
				auth.WithLogger(log),
			}
			if events != nil {
				opts = append(opts, auth.WithPublisher(events))
			}
			ctrl := auth.NewController(remote, store, opts...)

			c := browser.NewClient(id, store, ctrl)
			c.OnClose(web.ForwardState(hub, id, store, ctrl))
			return c, nil
		},
		browser.WithSecureCookies(cfg.SecureCookies()),
		browser.WithIdleTTL(cfg.ClientIdleTTL),
		browser.WithMetrics(authMetrics),
		browser.WithLogger(log),
		browser.WithExempt("/health", "/metrics", "/api/health", "/docs", "/openapi.json"),
	)
	defer clients.Close()
	go clients.Run(ctx)

	pageController := func(r *http.Request) handlers.AuthController {
		if c, ok := browser.FromContext(r.Context()); ok {
			return c.Auth
		}
		return nil
	}
	guardSource := func(r *http.Request) guard.Source {
		if c, ok := browser.FromContext(r.Context()); ok {
			return c.Auth
		}
		return nil
	}
	apiService := func(ctx context.Context) (api.AuthService, bool) {
		if c, ok := browser.FromContext(ctx); ok {
			return c.Auth, true
		}
		return nil, false
	}
	owner := func(r *http.Request) string {
		if c, ok := browser.FromContext(r.Context()); ok {
			return c.ID
		}
		return ""
	}

	// 10. Templates and handlers
	tmpl := web.NewTemplateEngine(web.Templates(), false)
	if err := tmpl.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load templates")
	}

	server := web.NewServer(&web.Config{
		Port:           cfg.HTTPPort,
		AllowedOrigins: cfg.AllowedOrigins,
	},
		web.WithHub(hub),
		web.WithMetrics(reg),
		web.WithLogger(log),
		web.WithMiddleware(clients.Middleware),
		web.WithOwner(owner),
	)

	policy := guard.Policy{Strict: cfg.StrictGuard}
	server.RegisterPagesHandler(handlers.NewPagesHandler(tmpl, pageController, cfg.TGBotUsername), guardSource, policy)
	server.RegisterFormsHandler(handlers.NewFormsHandler(tmpl, pageController))

	apiServer := api.NewServer(&api.Config{
		Port:        cfg.HTTPPort,
		Title:       "finlog",
		Description: "Session and sign-in API of the finlog web client",
		Version:     "1.0.0",
	}, apiService)
	server.MountAPI(apiServer.Handler())
	apiServer.MountDocsOn(server.Router(), "finlog", "Session and sign-in API of the finlog web client")

	// 11. Start server; each browser's session resolves on its first request
	log.Info().Int("port", cfg.HTTPPort).Str("url", cfg.PublicURL).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// 12. Optional launcher bot
	if cfg.TelegramEnabled() {
		bot, err := launcher.New(cfg.TGBotToken, cfg.TGBotUsername, cfg.TGAppName, log)
		if err != nil {
			log.Warn().Err(err).Msg("launcher bot disabled")
		} else {
			go func() {
				if err := bot.Run(ctx); err != nil {
					log.Error().Err(err).Msg("launcher bot stopped")
				}
			}()
		}
	}

	// 13. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("shutdown complete")
}
