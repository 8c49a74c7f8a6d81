// Command leadsearch serves the contact search API and offers offline tools
// for filter parsing and bulk imports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/config"
	logpkg "github.com/kailas-cloud/leadsearch/internal/logger"
	"github.com/kailas-cloud/leadsearch/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var env string

	root := &cobra.Command{
		Use:          "leadsearch",
		Short:        "Contact search and natural-language filtering for the M&A CRM",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "config environment (local, dev, docker, prod)")

	root.AddCommand(
		newServeCmd(&env),
		newParseFiltersCmd(&env),
		newImportCmd(&env),
	)
	return root
}

// bootstrap loads the configuration for env and builds the logger from it.
func bootstrap(env string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLoggerWithFile(env, cfg.Logging.Level, logpkg.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
