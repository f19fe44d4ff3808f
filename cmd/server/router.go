package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wemet/relay-server-go/internal/config"
	"github.com/wemet/relay-server-go/internal/handler"
	"github.com/wemet/relay-server-go/internal/metrics"
	"github.com/wemet/relay-server-go/internal/middleware"
	"github.com/wemet/relay-server-go/internal/service"
)

func newRouter(
	cfg *config.Config,
	matchService *service.MatchService,
	signalingHandler *handler.SignalingHandler,
	m *metrics.Metrics,
	connectLimiter middleware.Limiter,
) http.Handler {
	securityHeaders := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())
	connectRateLimit := middleware.NewConnectRateLimitMiddleware(connectLimiter, cfg.ConnectRateLimitPerMin, "ws")

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(corsHandler)
		r.Use(securityHeaders.Handler)
		r.Method(http.MethodGet, "/health", handler.NewHealthHandler(matchService.Snapshot))
		r.Method(http.MethodGet, "/ice-servers", handler.NewICEHandler(cfg.ICEServers, cfg.TURNUsername, cfg.TURNCredential))
	})

	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.With(connectRateLimit.Handler).Method(http.MethodGet, "/ws", signalingHandler)

	if cfg.StaticDir != "" {
		r.NotFound(handler.NewWebClientHandler(cfg.StaticDir).ServeHTTP)
	}

	return r
}
