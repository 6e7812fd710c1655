// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rentuma/authcore/internal/config"
	"github.com/rentuma/authcore/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect database migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			databaseURL, err := requireDatabaseURL()
			if err != nil {
				return err
			}
			cmd.Println("Running migrations...")
			if err := migrateUp(databaseURL); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			databaseURL, err := requireDatabaseURL()
			if err != nil {
				return err
			}
			migrator, err := store.NewMigrator(databaseURL)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, migrator)
			if err := migrator.Down(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").Wrap(err)
			}
			cmd.Println("Rollback completed successfully")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			databaseURL, err := requireDatabaseURL()
			if err != nil {
				return err
			}
			migrator, err := store.NewMigrator(databaseURL)
			if err != nil {
				return err
			}
			defer closeMigrator(cmd, migrator)
			ver, dirty, err := migrator.Version()
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migration version").Wrap(err)
			}
			if ver == 0 {
				cmd.Println("No migrations applied")
				return nil
			}
			cmd.Printf("Version: %d (dirty: %v)\n", ver, dirty)
			return nil
		},
	})

	return cmd
}

func requireDatabaseURL() (string, error) {
	databaseURL := os.Getenv(config.EnvDatabaseURL)
	if databaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").
			Errorf("%s environment variable is required", config.EnvDatabaseURL)
	}
	return databaseURL, nil
}

func migrateUp(databaseURL string) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck // close error after successful migration is not actionable
		migrator.Close()
	}()
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
	}
	return nil
}

func closeMigrator(cmd *cobra.Command, migrator *store.Migrator) {
	if err := migrator.Close(); err != nil {
		cmd.PrintErrln("warning: closing migrator:", err)
	}
}
