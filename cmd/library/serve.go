package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/utafrali/LibraryGo/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			log.Info("starting library service",
				slog.String("environment", cfg.Environment),
				slog.Int("http_port", cfg.HTTPPort),
			)

			application, err := app.NewApp(cfg, log)
			if err != nil {
				log.Error("failed to initialize application", slog.String("error", err.Error()))
				return err
			}

			// Run blocks until shutdown.
			if err := application.Run(cmd.Context()); err != nil {
				log.Error("application error", slog.String("error", err.Error()))
				return err
			}

			log.Info("library service stopped")
			return nil
		},
	}
}
