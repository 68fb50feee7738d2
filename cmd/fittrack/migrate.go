package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/fittrack/internal/config"
	"github.com/dukerupert/fittrack/internal/database"
	"github.com/dukerupert/fittrack/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := database.OpenRaw(cfg.Data.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sqlite %s: up to date\n", cfg.Data.DBPath)

		if cfg.Data.Backend != config.BackendPostgres {
			return nil
		}
		pool, err := postgres.Open(cmd.Context(), cfg.Data.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "postgres: up to date")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := database.OpenRaw(cfg.Data.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sqlite %s\n", cfg.Data.DBPath)
		if err := database.Status(db, out); err != nil {
			return err
		}

		if cfg.Data.Backend != config.BackendPostgres {
			return nil
		}
		pool, err := postgres.Open(cmd.Context(), cfg.Data.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		fmt.Fprintln(out, "postgres")
		return postgres.Status(cmd.Context(), pool, out)
	},
}
