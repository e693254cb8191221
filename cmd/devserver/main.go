package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"tillsync/internal/app/devserver/api"
	"tillsync/internal/app/devserver/config"
	"tillsync/internal/app/devserver/storage/memory"
	"tillsync/internal/app/devserver/storage/postgres"
	"tillsync/internal/utils/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	storage, cleanup, err := buildStorage(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := &http.Server{
		Addr:    cfg.Server.RunAddress,
		Handler: api.New(storage, cfg, log),
	}

	go func() {
		log.Info("devserver started", "address", cfg.Server.RunAddress, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

// buildStorage uses postgres when DATABASE_URI is configured and falls back
// to a seeded in-memory store for local development.
func buildStorage(cfg *config.Config, log *slog.Logger) (api.Storage, func(), error) {
	if cfg.DB.DatabaseURI != "" {
		pg, err := postgres.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		repos := struct {
			*postgres.OperationRepository
			*postgres.DeviceRepository
			*postgres.RefDataRepository
		}{
			postgres.NewOperationRepository(pg, log),
			postgres.NewDeviceRepository(pg, log),
			postgres.NewRefDataRepository(pg, log),
		}
		return repos, func() { _ = pg.Close() }, nil
	}

	log.Warn("DATABASE_URI not set, using in-memory storage")
	mem := memory.New()
	mem.SetDatasetVersion("products", "v1")
	mem.SetDatasetVersion("tax_rules", "v1")
	return mem, func() {}, nil
}
