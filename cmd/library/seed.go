package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/utafrali/LibraryGo/internal/app"
	"github.com/utafrali/LibraryGo/internal/repository/postgres"
	"github.com/utafrali/LibraryGo/internal/seed"
	"github.com/utafrali/LibraryGo/migrations"
	"github.com/utafrali/LibraryGo/pkg/database"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		count   int
		force   bool
		rngSeed uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty catalog with random books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			pool, err := app.OpenDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.RunMigrations(cmd.Context(), pool, migrations.FS, log); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			created, err := seed.NewSeederWithSeed(postgres.NewBookRepository(pool), log, rngSeed).Seed(cmd.Context(), count, force)
			if err != nil {
				log.Error("seeding failed", slog.Int("created", created), slog.String("error", err.Error()))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d books\n", created)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", seed.DefaultCount, "number of books to create")
	cmd.Flags().BoolVar(&force, "force", false, "seed even when the catalog already has books")
	cmd.Flags().Uint64Var(&rngSeed, "seed", 0, "generator seed for a reproducible catalog; 0 picks one at random")
	return cmd
}
