// Package cmd defines and implements the CLI commands for the moviemeta executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/filmatlas/moviemeta/internal/config"
	"github.com/filmatlas/moviemeta/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moviemeta",
		Short: "Resolve free-text movie names into structured metadata records.",
		Long: `moviemeta resolves a free-text movie name into a structured record
(title, year, rating, genres, cast, poster, synopsis) by querying an
external catalog site through its suggestion endpoint and detail pages.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// setup loads configuration and builds the logger for a subcommand run.
func setup() (config.Config, *zap.Logger, error) {
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

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
