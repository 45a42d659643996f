package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memosuite/memoq/internal/backup"
	"github.com/memosuite/memoq/internal/merge"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a backup file and merge it",
	Long: `Reads a backup file and merges its contents into the local database.
Nothing local is ever overwritten or deleted: incoming records are
matched against local ones by identity (books by title and author,
memos by title and creation time) and only unmatched records are
inserted. Cross-references are re-linked to local ids as part of the
merge, which runs in a single transaction.

Encrypted backups require --password.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importPassword string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importPassword, "password", "", "Password for encrypted backups")
}

func runImport(cmd *cobra.Command, args []string) error {
	st, database, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if importPassword == "" {
		importPassword = cfg.BackupPassword
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	payload, err := backup.Decode(data, importPassword)
	if err != nil {
		switch {
		case errors.Is(err, backup.ErrPasswordRequired):
			return fmt.Errorf("backup is encrypted; supply --password")
		case errors.Is(err, backup.ErrInvalidPassword):
			return fmt.Errorf("wrong password for encrypted backup")
		case errors.Is(err, backup.ErrMalformedPayload):
			return fmt.Errorf("not a valid backup file: %s", args[0])
		default:
			return err
		}
	}

	engine := merge.NewEngine(st)
	report, err := engine.Merge(payload)
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func printReport(r *merge.Report) {
	fmt.Printf("%-10s %9s %9s %9s\n", "", "inserted", "matched", "skipped")
	for _, row := range []struct {
		name   string
		counts merge.Counts
	}{
		{"folders", r.Folders},
		{"books", r.Books},
		{"memos", r.Memos},
		{"comments", r.Comments},
	} {
		fmt.Printf("%-10s %9d %9d %9d\n", row.name,
			row.counts.Inserted, row.counts.Matched, row.counts.Skipped)
	}
}
