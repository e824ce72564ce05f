package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/utafrali/LibraryGo/internal/app"
	"github.com/utafrali/LibraryGo/internal/config"
	pkgconfig "github.com/utafrali/LibraryGo/pkg/config"
	"github.com/utafrali/LibraryGo/pkg/logger"
)

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "library",
		Short:        "Library catalog and lending service",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional KEY=VALUE file loaded before the environment is read")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
	)
	return cmd
}

// setup loads configuration and builds the logger shared by every command.
// Load errors are printed with the default logger since no configured one
// exists yet.
func (o *rootOptions) setup() (*config.Config, *slog.Logger, error) {
	if err := pkgconfig.LoadDotEnv(o.envFile); err != nil {
		slog.Error("failed to load env file", slog.String("error", err.Error()))
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(app.ServiceName, cfg.LogLevel), nil
}
