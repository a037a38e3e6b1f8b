package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/db"
)

var printSchema bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  "Applies the idempotent schema to the configured database. With --print the schema is written to stdout instead.",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "Print the schema instead of applying it")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if printSchema {
		_, err := fmt.Fprint(cmd.OutOrStdout(), db.Schema())
		return err
	}
	return withStore(cmd.Context(), func(_ *config.Config, store *db.DB) error {
		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	})
}
