package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"philcali.me/listsync/internal/config"
	"philcali.me/listsync/internal/logging"
)

var (
	configPath string
	settings   = config.New()
	logCloser  io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "listsync",
	Short: "Offline first shopping lists with optional cloud sync",
	Long: `listsync keeps shopping lists in a local store and mirrors them to a
remote document store once you sign in.

Lists made as a guest move into your account on the first sign in.
Writes that cannot reach the remote store stay pending until "listsync retry".

Example usage:
  listsync list create Groceries
  listsync item add Groceries Milk --qty 2
  listsync signin user-123
  listsync watch`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a config file (yaml, toml or json)")
	flags.String("local", config.LocalSQLite, "Local store backend: memory, sqlite or file")
	flags.String("local-path", "", "Database file or directory for the local store")
	flags.String("remote", config.RemoteNone, "Remote store backend: none, memory (discarded on exit) or dynamodb")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-file", "", "Write logs to a rotated file instead of stderr")
	settings.BindPFlag("local.backend", flags.Lookup("local"))
	settings.BindPFlag("local.path", flags.Lookup("local-path"))
	settings.BindPFlag("remote.backend", flags.Lookup("remote"))
	settings.BindPFlag("log_level", flags.Lookup("log-level"))
	settings.BindPFlag("log_file", flags.Lookup("log-file"))
}

// openApp loads settings and wires the stores. Failures end the process.
func openApp(ctx context.Context) *App {
	cfg, err := config.Load(settings, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	var logger *slog.Logger
	logger, logCloser = logging.Setup(cfg.LogLevel, cfg.LogFile)
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return app
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
