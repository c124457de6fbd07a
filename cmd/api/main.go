package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"internship-matcher/internal/bootstrap"
	"internship-matcher/internal/scheduler"
	"internship-matcher/internal/shared/config"
	"internship-matcher/internal/shared/server"
	"internship-matcher/internal/shared/server/grpcserver"
	"internship-matcher/internal/shared/server/mux"
	"internship-matcher/internal/shared/telemetry"
)

const (
	healthSyncInterval = 5 * time.Second
	shutdownTimeout    = 20 * time.Second
)

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	jobs := scheduler.New(ctx)
	if err := jobs.Add("catalog-refresh", cfg.CatalogRefresh, app.CatalogService.Refresh); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	jobs.Start()

	grpcSrv := grpcserver.New(app.CatalogIndex)
	go grpcSrv.Watch(ctx, healthSyncInterval)

	m := mux.New(app.Router, grpcSrv)
	addr := server.Addr(cfg.Port)
	if err := m.Listen(addr); err != nil {
		log.Fatalf("listen: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- m.Serve() }()

	select {
	case err := <-served:
		if err != nil {
			telemetry.Error("server.stopped", map[string]any{"error": err.Error()})
		}
	case <-ctx.Done():
	}

	telemetry.Info("server.shutdown", map[string]any{"addr": addr})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	jobs.Stop(shutdownCtx)
	if err := m.Shutdown(shutdownCtx); err != nil {
		telemetry.Warn("server.shutdown_failed", map[string]any{"error": err.Error()})
	}
}
