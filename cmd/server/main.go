package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/app"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/auth"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/changefeed"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/config"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/database"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/gateway"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/hub"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/logging"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/provider"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/server"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/stats"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/version"
)

// feedStream adapts the changefeed to the gateway's subscription
// interface.
type feedStream struct {
	feed *changefeed.Feed
}

func (f feedStream) Subscribe(ctx context.Context) (gateway.Subscription, error) {
	sub, err := f.feed.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger := logging.Logger
	logger.Info("starting healthconnect",
		"version", version.Version,
		"env", cfg.AppEnv,
		"demo_mode", cfg.DemoMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	rdb, err := changefeed.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	clock := clockwork.NewRealClock()

	appointments := database.NewAppointmentRepository(pool)
	patients := database.NewPatientRepository(pool)
	payments := database.NewPaymentRepository(pool)
	messages := database.NewMessageRepository(pool)

	broadcastHub := hub.New(clock, logger)
	defer broadcastHub.Stop()

	notifier := changefeed.NewNotifier(rdb, logger)
	feed := changefeed.NewFeed(rdb, logger)
	aggregator := stats.NewAggregator(appointments, patients, clock)

	svc := app.NewService(appointments, patients, payments, messages,
		broadcastHub, notifier, provider.NewStub(), cfg.DemoMode, clock)

	gw := gateway.New(broadcastHub, svc, aggregator, feedStream{feed: feed}, clock, logger)
	authSvc := auth.NewService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, cfg.TokenTTL, clock)

	srv := server.New(cfg, logger, svc, authSvc, gw, aggregator, pool, rdb, clock)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
