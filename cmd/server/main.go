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
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/insightdesk/internal/config"
	"github.com/JonMunkholm/insightdesk/internal/core"
	"github.com/JonMunkholm/insightdesk/internal/files"
	"github.com/JonMunkholm/insightdesk/internal/logging"
	"github.com/JonMunkholm/insightdesk/internal/store"
	"github.com/JonMunkholm/insightdesk/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Overload lets .env win over variables already in the environment
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_driver", cfg.Store.Driver,
		"upload_dir", cfg.Upload.Dir,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(context.Background()); err != nil {
			slog.Warn("close store", "error", err)
		}
	}()

	disk, err := files.NewDisk(cfg.Upload.Dir)
	if err != nil {
		return err
	}
	slog.Info("upload storage ready", "dir", disk.Dir())

	datasets := core.NewDatasetStore(repo, disk, cfg.Upload.BatchSize, core.PageLimits{
		Default: cfg.Pagination.DefaultLimit,
		Max:     cfg.Pagination.MaxLimit,
	})
	limiter := core.NewIngestLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)

	server := web.NewServer(cfg, web.Deps{
		Store:       repo,
		Datasets:    datasets,
		Coordinator: core.NewCoordinator(datasets, disk, cfg.Pagination.PreviewRows),
		Ingest:      core.NewIngestService(datasets, disk, limiter),
		Directory:   core.NewDirectory(cfg.Directory.Entries()),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := limiter.Active(); active > 0 {
			slog.Info("waiting for ingests to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("ingests did not complete in time", "error", err)
			} else {
				slog.Info("all ingests completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
