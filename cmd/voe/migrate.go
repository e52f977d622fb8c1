package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MCS-OSU/mcs-eval3/internal/storage/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the verdict database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqlite.DB) error { return db.MigrateUp() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqlite.DB) error { return db.MigrateDown() })
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqlite.DB) error {
			v, dirty, err := db.MigrateVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func withDB(fn func(*sqlite.DB) error) error {
	if params.DBPath == "" {
		return errors.New("no database configured: set --db, db_path or VOE_DB_PATH")
	}
	db, err := sqlite.Open(params.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
