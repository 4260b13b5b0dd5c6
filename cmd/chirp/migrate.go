package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/chirp/internal/platform/migrations"
)

var errNoDatabase = errors.New("DATABASE_URL (database.dsn) is not set")

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	cmd.AddCommand(
		migrateStep("up", "Apply all pending migrations", migrations.Up),
		migrateStep("down", "Roll back every migration", migrations.Down),
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				dsn, err := databaseURL()
				if err != nil {
					return err
				}
				v, dirty, ok, err := migrations.Version(dsn)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}

func migrateStep(use, short string, run func(dsn string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := databaseURL()
			if err != nil {
				return err
			}
			if err := run(dsn); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", use)
			return nil
		},
	}
}

func databaseURL() (string, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Database.DSN == "" {
		return "", errNoDatabase
	}
	return cfg.Database.DSN, nil
}
