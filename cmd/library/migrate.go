package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/utafrali/LibraryGo/internal/app"
	"github.com/utafrali/LibraryGo/migrations"
	"github.com/utafrali/LibraryGo/pkg/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			pool, err := app.OpenDatabase(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("migrate failed", slog.String("error", err.Error()))
				return err
			}
			defer pool.Close()

			if err := database.RunMigrations(cmd.Context(), pool, migrations.FS, log); err != nil {
				log.Error("migrate failed", slog.String("error", err.Error()))
				return fmt.Errorf("run migrations: %w", err)
			}
			log.Info("database migrations completed")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they have been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			pool, err := app.OpenDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			states, err := database.MigrationStatus(cmd.Context(), pool, migrations.FS, log)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED\tDIRTY")
			for _, s := range states {
				fmt.Fprintf(w, "%d\t%s\t%t\t%t\n", s.Version, s.Name, s.Applied, s.Dirty)
			}
			return w.Flush()
		},
	})

	return cmd
}
