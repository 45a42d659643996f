package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memosuite/memoq/internal/draft"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Inspect and recover autosaved drafts",
}

var draftsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List autosaved drafts",
	Args:  cobra.NoArgs,
	RunE:  runDraftsLs,
}

var draftsDiffCmd = &cobra.Command{
	Use:   "diff <id>",
	Short: "Show how a draft differs from its memo",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftsDiff,
}

var draftsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Prune stale drafts and list what is recoverable",
	Long: `Runs the startup reconciliation pass by hand: superseded and stale
snapshots are deleted, and the drafts still worth recovering are
listed.`,
	Args: cobra.NoArgs,
	RunE: runDraftsSweep,
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	draftsCmd.AddCommand(draftsLsCmd, draftsDiffCmd, draftsSweepCmd)
}

func runDraftsLs(cmd *cobra.Command, args []string) error {
	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	drafts, err := st.Drafts.List()
	if err != nil {
		return err
	}

	fmt.Printf("%-5s %-8s %-8s %-30s %s\n", "ID", "MEMO", "BOOK", "TITLE", "SAVED")
	for _, d := range drafts {
		memo, book := "-", "-"
		if d.OriginalID != nil {
			memo = fmt.Sprintf("%d", *d.OriginalID)
		}
		if d.BookID != nil {
			book = fmt.Sprintf("%d", *d.BookID)
		}
		fmt.Printf("%-5d %-8s %-8s %-30s %s\n",
			d.ID, memo, book, truncate(d.Title, 30), d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runDraftsDiff(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, database, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	row, err := st.Drafts.Get(id)
	if err != nil {
		return err
	}
	if row.OriginalID == nil {
		// Nothing canonical to compare against; just show the content.
		fmt.Println(row.Content)
		return nil
	}

	rec := newReconciler(st, cfg)
	key := draft.Key{OriginalID: row.OriginalID}
	recovery, err := rec.Recover(key)
	if err != nil {
		return err
	}
	if recovery == nil {
		fmt.Println("draft matches the memo; nothing to recover")
		return nil
	}
	fmt.Print(recovery.Diff)
	return nil
}

func runDraftsSweep(cmd *cobra.Command, args []string) error {
	st, database, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	rec := newReconciler(st, cfg)
	recoveries, err := rec.SweepOnStartup()
	if err != nil {
		return err
	}

	if len(recoveries) == 0 {
		fmt.Println("no drafts to recover")
		return nil
	}
	fmt.Printf("%d draft(s) recoverable:\n", len(recoveries))
	for _, r := range recoveries {
		target := "new memo"
		if r.Draft.OriginalID != nil {
			target = fmt.Sprintf("memo %d", *r.Draft.OriginalID)
		}
		fmt.Printf("  draft %d (%s): %s\n", r.Draft.ID, target, truncate(r.Fields.Title, 40))
	}
	return nil
}
