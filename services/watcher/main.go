package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facilityops/sensor-dashboard/internal/logging"
	"github.com/facilityops/sensor-dashboard/services/watcher/internal/config"
	"github.com/facilityops/sensor-dashboard/services/watcher/internal/db"
	"github.com/facilityops/sensor-dashboard/services/watcher/internal/ingest"
	"github.com/facilityops/sensor-dashboard/services/watcher/internal/mqttsub"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("watcher failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogJSON)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var sink ingest.Sink
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sink = db.Writer{Pool: pool}
	}

	ing := ingest.New(sink, ingest.Options{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		MinInterval:   cfg.MinInterval,
		DryRun:        cfg.DryRun,
	}, logger)

	sub, err := mqttsub.Subscribe(ctx, mqttsub.Options{
		Broker:    cfg.Broker,
		ClientID:  cfg.ClientID,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Topic:     cfg.Topic,
		KeepAlive: cfg.KeepAlive,
		Logger:    logger,
	}, ing.Handle)
	if err != nil {
		return err
	}
	defer sub.Close()

	logger.Info("watching sensor topic",
		"topic", cfg.Topic,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval,
		"min_interval", cfg.MinInterval,
		"dry_run", cfg.DryRun)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- ing.Run(runCtx) }()
	subErr := make(chan error, 1)
	go func() { subErr <- sub.Wait(runCtx) }()

	// A lost connection stops ingestion after flushing what was received.
	select {
	case err = <-runErr:
	case err = <-subErr:
		stop()
		if rerr := <-runErr; rerr != nil && !errors.Is(rerr, context.Canceled) {
			err = rerr
		}
	}

	logger.Info("watcher stopped",
		"received", ing.Stats.Received.Load(),
		"invalid", ing.Stats.Invalid.Load(),
		"duplicates", ing.Stats.Duplicates.Load(),
		"inserted", ing.Stats.Inserted.Load(),
		"dropped", ing.Stats.Dropped.Load())

	return err
}
