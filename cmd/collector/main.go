package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/wan300/jiaotong/internal/adapter/amap"
	httpadapter "github.com/wan300/jiaotong/internal/adapter/http"
	"github.com/wan300/jiaotong/internal/adapter/postgres"
	"github.com/wan300/jiaotong/internal/collector"
	"github.com/wan300/jiaotong/internal/config"
	"github.com/wan300/jiaotong/internal/observability"
	"github.com/wan300/jiaotong/internal/scheduler"
)

func main() {
	// Best effort; production deployments set real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The store must be configured, reachable, and migrated before any
	// cadence starts.
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Initialize(ctx); err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	provider := amap.NewClient(cfg, logger, metrics)

	sched := scheduler.New(clockwork.NewRealClock(), []scheduler.Lane{
		{
			Name:  "poi",
			Every: cfg.POIInterval,
			Tasks: []scheduler.Task{collector.NewPOITask(provider, store, cfg, logger, metrics)},
		},
		{
			Name:  "traffic",
			Every: cfg.TrafficInterval,
			Tasks: []scheduler.Task{collector.NewTrafficTask(provider, store, cfg, logger, metrics)},
		},
		{
			Name:  "weather",
			Every: cfg.WeatherInterval,
			Tasks: []scheduler.Task{collector.NewWeatherTask(provider, store, cfg, logger, metrics)},
		},
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, []httpadapter.Check{
		{Name: "database", Checker: store},
		{Name: "scheduler", Checker: sched},
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Let in-flight collection runs drain before closing the pool.
	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not drain before shutdown timeout")
	}

	logger.Info("shutdown complete")
}
