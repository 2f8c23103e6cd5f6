package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/api"
	"github.com/medisched/medisched/internal/appointment"
	"github.com/medisched/medisched/internal/chat"
	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/db"
	"github.com/medisched/medisched/internal/notification"
	"github.com/medisched/medisched/internal/payment"
	"github.com/medisched/medisched/internal/realtime"
	redisclient "github.com/medisched/medisched/internal/redis"
)

const version = "1.0.0"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	events := realtime.NewRedisPublisher(rdb)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)

	apptRepo := appointment.NewPgRepository(pgPool)
	notifRepo := notification.NewPgRepository(pgPool)
	chatRepo := chat.NewPgRepository(pgPool)

	notifier := notification.NewDispatcher(notifRepo, events, logger)
	apptSvc := appointment.NewService(apptRepo, locker, notifier, events, logger)
	slotSvc := appointment.NewSlotService(apptRepo, events, logger)
	reconciler := payment.NewReconciler(apptRepo, notifier, logger)
	chatSvc := chat.NewService(chatRepo, events, logger)
	callSvc := chat.NewCallService(chatSvc, chatRepo, events, cfg.CallStaleAfter, logger)

	router := api.NewRouter(api.RouterConfig{
		Appointments:  apptSvc,
		Slots:         slotSvc,
		Payments:      reconciler,
		Chat:          chatSvc,
		Calls:         callSvc,
		Notifications: notifier,
		PgPool:        pgPool,
		Redis:         rdb,
		Logger:        logger,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
