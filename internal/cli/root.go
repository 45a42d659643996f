package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memoq",
	Short: "Backup, restore, and merge engine for reading memos",
	Long: `memoq manages books, memos, and comments on a SQLite backend and
moves them between devices as portable JSON backups. Imports never
overwrite: incoming data is matched against local records and merged
additively, with relationships re-linked across databases.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides MEMOQ_DB_PATH)")
}
