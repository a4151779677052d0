package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/facilityops/sensor-dashboard/internal/logging"
	"github.com/facilityops/sensor-dashboard/services/api/config"
	"github.com/facilityops/sensor-dashboard/services/api/db"
	httpserver "github.com/facilityops/sensor-dashboard/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogJSON)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			slog.Error("migration error", "error", err)
			os.Exit(1)
		}
		slog.Info("database schema up to date")
	}

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connection error", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := httpserver.New(cfg, store, reg)
	slog.Info("REST API listening", "addr", cfg.ListenAddr(), "default_range", cfg.DefaultRange.Code())

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
