package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iconidentify/groupgrab/internal/config"
	"github.com/iconidentify/groupgrab/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "groupgrab: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groupgrab",
		Short: "Archive media links shared in group chats",
		Long: `groupgrab watches group chat traffic for twitter/x and instagram links,
downloads the media with gallery-dl, records every artifact in a dedup
database and optionally mirrors it to Google Drive or S3.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newLinksCmd(),
		newDriveTokenCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "groupgrab %s (built %s)\n", Version, BuildTime)
		},
	}
}

// loadConfig reads configuration and builds the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
