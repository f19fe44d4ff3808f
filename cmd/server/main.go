package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wemet/relay-server-go/internal/config"
	"github.com/wemet/relay-server-go/internal/handler"
	"github.com/wemet/relay-server-go/internal/hub"
	"github.com/wemet/relay-server-go/internal/jobs"
	"github.com/wemet/relay-server-go/internal/metrics"
	"github.com/wemet/relay-server-go/internal/middleware"
	"github.com/wemet/relay-server-go/internal/redis"
	"github.com/wemet/relay-server-go/internal/repository"
	"github.com/wemet/relay-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(cfg.IsProduction()); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	var connectLimiter middleware.Limiter = middleware.NewRateLimiter(config.ConnectRateWindow)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL, config.RedisPingTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		connectLimiter = middleware.NewRedisRateLimiter(redisClient.Client, config.ConnectRateWindow)
		log.Info().Msg("redis connected, connect limits shared across instances")
	}

	m := metrics.New()
	h := hub.NewHub(m)

	matchService := service.NewMatchService(
		repository.NewConnectionRepository(),
		repository.NewWaitingPoolRepository(),
		h,
		service.TrustClientPolicy{},
		m,
		cfg.InitialCoinBalance,
		cfg.WaitingTimeout(),
	)
	m.RegisterSnapshot(matchService.Snapshot)

	signalingHandler := handler.NewSignalingHandler(
		matchService, h, cfg.AllowedOrigins, cfg.MaxMessageBytes, cfg.MaxMessagesPerSecond,
	)
	r := newRouter(cfg, matchService, signalingHandler, m, connectLimiter)

	sweepJob := jobs.NewStaleSweepJob(matchService, cfg.SweepInterval())
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: config.ServerReadHeaderTimeout,
		IdleTimeout:       config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := shutdown(shutdownCtx, server, h, signalingHandler); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// shutdown stops accepting requests, then closes every websocket with 1001
// and waits for their disconnect handling. http.Server.Shutdown alone does
// not track hijacked connections.
func shutdown(ctx context.Context, server *http.Server, h *hub.Hub, signaling *handler.SignalingHandler) error {
	serverErr := server.Shutdown(ctx)
	if serverErr != nil {
		serverErr = fmt.Errorf("shutdown http server: %w", serverErr)
	}

	h.Close()

	waitErr := signaling.Wait(ctx)
	if waitErr != nil {
		waitErr = fmt.Errorf("wait for websocket sessions: %w", waitErr)
	}

	return errors.Join(serverErr, waitErr)
}

func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
