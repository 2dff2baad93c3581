package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/iconidentify/groupgrab/internal/api"
	"github.com/iconidentify/groupgrab/internal/api/handler"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server that receives chat events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			logger.Info("starting groupgrab", "version", Version, "build_time", BuildTime)

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			a.dispatcher.Start()

			router := api.NewRouter(
				handler.NewEventHandler(a.dispatcher, logger),
				handler.NewLinksHandler(a.repo, logger),
				handler.NewActivityHandler(a.pipeline.Activity(), logger),
				handler.NewHealthHandler(handler.HealthDeps{
					DB:           a.repo,
					Tool:         a.fetcher,
					Pipeline:     a.pipeline,
					Queue:        a.dispatcher,
					Archive:      a.repo,
					DownloadsDir: cfg.Storage.DownloadsDir,
				}, logger),
				cfg.Server.APIKey,
				logger,
			)

			srv := &http.Server{
				Addr:         cfg.Server.Address(),
				Handler:      router,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting HTTP server", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err := <-errCh:
				if err != nil {
					a.dispatcher.Stop(5 * time.Second)
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", "error", err)
			}

			if err := a.dispatcher.Stop(cfg.Fetch.Timeout + 30*time.Second); err != nil {
				logger.Error("dispatcher shutdown error", "error", err)
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
}
