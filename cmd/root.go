// Package cmd defines the CLI commands for the staywatch executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/fetch"
	"github.com/staywatch/staywatch/internal/logging"
	"github.com/staywatch/staywatch/internal/proxy"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staywatch",
		Short: "A resilient listing-page survey crawler.",
		Long: `staywatch fetches listing pages politely and persistently. It rotates
user agents and proxies, backs off when a host starts soft-blocking, and
records every surviving page body for downstream analysis.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults to STAYWATCH_* env vars)")

	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newSurveyCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "staywatch: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger shared by every
// subcommand.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func buildClient(cfg config.Config, logger *zap.Logger) *fetch.Client {
	pool := proxy.New(cfg.Fetch.Proxies)
	session := fetch.NewSession(cfg.Fetch.SessionConfig(), pool, logger)
	return fetch.NewClient(session, logger)
}

func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
	}
}
