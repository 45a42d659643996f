package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memosuite/memoq/internal/config"
	"github.com/memosuite/memoq/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run any pending database migrations",
	Long: `Migrate applies any pending SQL migrations to the database.

Migrations are embedded in the memoq binary and tracked via the
schema_migrations table. Each migration file is applied exactly once, so
this command is safe to run repeatedly.

Use --status to show the current migration status.`,
	RunE: runMigrate,
}

var migrateStatus bool

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show current migration status")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if migrateStatus {
		applied, pending, err := database.MigrationStatus()
		if err != nil {
			return err
		}
		for _, name := range applied {
			fmt.Printf("applied  %s\n", name)
		}
		for _, name := range pending {
			fmt.Printf("pending  %s\n", name)
		}
		return nil
	}

	applied, err := database.Migrate()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) == 0 {
		fmt.Println("Database is up to date. No migrations to apply.")
		return nil
	}
	for _, name := range applied {
		fmt.Printf("applied  %s\n", name)
	}
	return nil
}
