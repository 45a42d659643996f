package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memosuite/memoq/internal/domain"
)

var memoCmd = &cobra.Command{
	Use:   "memo",
	Short: "Manage memos",
}

var memoAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a memo",
	Long: `Creates a memo. Content comes from --content, @file, or stdin.

Examples:
  memoq memo add "Chapter 3 thoughts" -b 1 -c "The unreliable narrator..."
  memoq memo add "Quote" -b 1 --page 112 --quote "..." -c @notes.md
  echo "from stdin" | memoq memo add "Idea" -c -`,
	Args: cobra.ExactArgs(1),
	RunE: runMemoAdd,
}

var memoAppendCmd = &cobra.Command{
	Use:   "append <memo-id> <title>",
	Short: "Append a follow-up memo to a thread",
	Long: `Appends a new memo to the thread anchored at the given memo. If the
memo is not yet part of a thread, one is created and the memo becomes
its head.`,
	Args: cobra.ExactArgs(2),
	RunE: runMemoAppend,
}

var memoLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List memos",
	Args:  cobra.NoArgs,
	RunE:  runMemoLs,
}

var memoCatCmd = &cobra.Command{
	Use:   "cat <id>",
	Short: "Print a memo with its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoCat,
}

var memoRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a memo and its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoRm,
}

var (
	memoContent string
	memoBookID  int64
	memoTags    []string
	memoPage    int
	memoQuote   string
	memoLsBook  int64
)

func init() {
	rootCmd.AddCommand(memoCmd)
	memoCmd.AddCommand(memoAddCmd, memoAppendCmd, memoLsCmd, memoCatCmd, memoRmCmd)

	for _, c := range []*cobra.Command{memoAddCmd, memoAppendCmd} {
		c.Flags().StringVarP(&memoContent, "content", "c", "", "Memo content (use @file.md for file or - for stdin)")
		c.Flags().StringSliceVarP(&memoTags, "tag", "t", nil, "Tags (repeatable)")
		c.Flags().IntVar(&memoPage, "page", 0, "Page number the memo refers to")
		c.Flags().StringVar(&memoQuote, "quote", "", "Quoted passage")
	}
	memoAddCmd.Flags().Int64VarP(&memoBookID, "book", "b", 0, "Book the memo belongs to")

	memoLsCmd.Flags().Int64VarP(&memoLsBook, "book", "b", 0, "Only memos of this book")
}

func buildMemo(title string) (*domain.Memo, error) {
	content, err := readValueOrFile(memoContent)
	if err != nil {
		return nil, err
	}

	memo := &domain.Memo{
		Title:   title,
		Content: content,
		Quote:   memoQuote,
		Type:    domain.MemoTypeNormal,
	}
	if memoBookID > 0 {
		memo.BookID = &memoBookID
	}
	if memoPage > 0 {
		memo.PageNumber = &memoPage
	}
	if err := memo.SetTags(memoTags); err != nil {
		return nil, err
	}
	return memo, nil
}

func runMemoAdd(cmd *cobra.Command, args []string) error {
	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	memo, err := buildMemo(args[0])
	if err != nil {
		return err
	}
	if folder, err := st.Folders.Default(); err == nil {
		memo.FolderID = &folder.ID
	}

	id, err := st.Memos.Add(memo)
	if err != nil {
		return err
	}
	fmt.Printf("Added memo %d: %s\n", id, memo.Title)
	return nil
}

func runMemoAppend(cmd *cobra.Command, args []string) error {
	anchorID, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	memo, err := buildMemo(args[1])
	if err != nil {
		return err
	}

	// Follow-ups inherit the anchor's book and folder.
	id, err := st.Memos.AppendToThread(anchorID, memo)
	if err != nil {
		return err
	}
	fmt.Printf("Appended memo %d to thread of memo %d\n", id, anchorID)
	return nil
}

func runMemoLs(cmd *cobra.Command, args []string) error {
	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	var memos []*domain.Memo
	if memoLsBook > 0 {
		memos, err = st.Memos.ListByBook(memoLsBook)
	} else {
		memos, err = st.Memos.List()
	}
	if err != nil {
		return err
	}

	fmt.Printf("%-5s %-30s %-8s %-8s %s\n", "ID", "TITLE", "BOOK", "THREAD", "CREATED")
	for _, m := range memos {
		book := "-"
		if m.BookID != nil {
			book = fmt.Sprintf("%d", *m.BookID)
		}
		thread := "-"
		if m.ThreadID != nil && m.ThreadOrder != nil {
			thread = fmt.Sprintf("#%d", *m.ThreadOrder)
		}
		fmt.Printf("%-5d %-30s %-8s %-8s %s\n",
			m.ID, truncate(m.Title, 30), book, thread, m.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func runMemoCat(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	memo, err := st.Memos.Get(id)
	if err != nil {
		return err
	}

	fmt.Printf("# %s\n", memo.Title)
	if memo.Quote != "" {
		fmt.Printf("> %s\n", memo.Quote)
	}
	if memo.Content != "" {
		fmt.Println()
		fmt.Println(memo.Content)
	}
	if tags, err := memo.GetTags(); err == nil && len(tags) > 0 {
		fmt.Printf("\nTags: %s\n", strings.Join(tags, ", "))
	}

	comments, err := st.Comments.ListByMemo(id)
	if err != nil {
		return err
	}
	if len(comments) > 0 {
		fmt.Printf("\n--- %d comment(s) ---\n", len(comments))
		for _, c := range comments {
			fmt.Printf("[%d] %s  %s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
		}
	}
	return nil
}

func runMemoRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := st.Memos.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted memo %d\n", id)
	return nil
}
