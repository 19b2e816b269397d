package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/evanhutnik/routerisk-service/internal/config"
	"github.com/evanhutnik/routerisk-service/internal/observability"
	"github.com/evanhutnik/routerisk-service/internal/routerisk"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	s, err := routerisk.New(cfg, logger, metrics, prometheus.DefaultGatherer)
	if err != nil {
		logger.Fatalw("failed to start service", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
