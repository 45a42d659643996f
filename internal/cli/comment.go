package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memosuite/memoq/internal/domain"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Manage comments on memos",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <memo-id> <content>",
	Short: "Add a comment to a memo",
	Args:  cobra.ExactArgs(2),
	RunE:  runCommentAdd,
}

var commentRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommentRm,
}

func init() {
	rootCmd.AddCommand(commentCmd)
	commentCmd.AddCommand(commentAddCmd, commentRmCmd)
}

func runCommentAdd(cmd *cobra.Command, args []string) error {
	memoID, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	// Comments must hang off an existing memo.
	if _, err := st.Memos.Get(memoID); err != nil {
		return err
	}

	content, err := readValueOrFile(args[1])
	if err != nil {
		return err
	}

	id, err := st.Comments.Add(&domain.Comment{MemoID: memoID, Content: content})
	if err != nil {
		return err
	}
	fmt.Printf("Added comment %d\n", id)
	return nil
}

func runCommentRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := st.Comments.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted comment %d\n", id)
	return nil
}
