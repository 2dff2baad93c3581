package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/iconidentify/groupgrab/internal/chat"
	"github.com/iconidentify/groupgrab/internal/config"
	"github.com/iconidentify/groupgrab/internal/fetcher"
	"github.com/iconidentify/groupgrab/internal/remote"
	"github.com/iconidentify/groupgrab/internal/repository"
	"github.com/iconidentify/groupgrab/internal/service"
	"github.com/iconidentify/groupgrab/internal/worker"
)

// app is the wired archive pipeline shared by serve and ingest.
type app struct {
	repo       *repository.SQLLinkRepository
	fetcher    *fetcher.GalleryDL
	archiver   *remote.Archiver
	pipeline   *service.Pipeline
	dispatcher *worker.Dispatcher
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.Storage.DownloadsDir, 0755); err != nil {
		return nil, fmt.Errorf("create downloads directory: %w", err)
	}

	repo, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open link database: %w", err)
	}

	gdl := fetcher.NewGalleryDL(cfg.Fetch, logger)
	if !gdl.Available() {
		logger.Warn("fetch tool not found on PATH, downloads will fail", "tool", gdl.ToolPath())
	}

	archiver := remote.NewArchiver(remote.ConfigFrom(cfg.Remote), remote.FactoryFromConfig(cfg.Remote), logger)

	pipeline := service.NewPipeline(
		service.PipelineConfig{
			MonitoredGroups: cfg.Chat.MonitoredGroups,
			DownloadsDir:    cfg.Storage.DownloadsDir,
		},
		chat.NewDirectory(cfg.Chat.Groups),
		repo,
		gdl,
		archiver,
		logger,
	)

	dispatcher := worker.NewDispatcher(worker.Config{QueueSize: cfg.Server.QueueSize}, pipeline, logger)

	logger.Info("archive pipeline ready",
		"db_driver", repo.Dialect(),
		"downloads_dir", cfg.Storage.DownloadsDir,
		"monitored_groups", len(cfg.Chat.MonitoredGroups),
		"remote_enabled", archiver.Enabled(),
		"remote_backend", cfg.Remote.Backend,
	)

	return &app{
		repo:       repo,
		fetcher:    gdl,
		archiver:   archiver,
		pipeline:   pipeline,
		dispatcher: dispatcher,
	}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}
