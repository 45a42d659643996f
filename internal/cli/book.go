package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/memosuite/memoq/internal/domain"
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage books",
}

var bookAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a book",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookAdd,
}

var bookLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List books",
	Args:  cobra.NoArgs,
	RunE:  runBookLs,
}

var bookSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Update reading progress or status",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookSet,
}

var bookRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a book and its memos",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookRm,
}

var (
	bookAuthor     string
	bookTotalPages int
	bookFolder     string
	bookSetPage    int
	bookSetStatus  string
)

func init() {
	rootCmd.AddCommand(bookCmd)
	bookCmd.AddCommand(bookAddCmd, bookLsCmd, bookSetCmd, bookRmCmd)

	bookAddCmd.Flags().StringVarP(&bookAuthor, "author", "a", "", "Author name")
	bookAddCmd.Flags().IntVarP(&bookTotalPages, "pages", "p", 0, "Total page count")
	bookAddCmd.Flags().StringVarP(&bookFolder, "folder", "f", "", "Folder name (defaults to the default folder)")

	bookSetCmd.Flags().IntVar(&bookSetPage, "page", -1, "Current page")
	bookSetCmd.Flags().StringVar(&bookSetStatus, "status", "", "Status: reading, completed, on_hold")
}

func runBookAdd(cmd *cobra.Command, args []string) error {
	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	book := &domain.Book{
		Title:      args[0],
		Author:     bookAuthor,
		TotalPages: bookTotalPages,
		Status:     domain.BookStatusReading,
	}

	if bookFolder != "" {
		folder, err := st.Folders.GetByName(bookFolder)
		if err != nil {
			return fmt.Errorf("folder not found: %s", bookFolder)
		}
		book.FolderID = &folder.ID
	} else if folder, err := st.Folders.Default(); err == nil {
		book.FolderID = &folder.ID
	}

	id, err := st.Books.Add(book)
	if err != nil {
		return err
	}
	fmt.Printf("Added book %d: %s\n", id, book.Title)
	return nil
}

func runBookLs(cmd *cobra.Command, args []string) error {
	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	books, err := st.Books.List()
	if err != nil {
		return err
	}

	fmt.Printf("%-5s %-30s %-20s %-10s %s\n", "ID", "TITLE", "AUTHOR", "STATUS", "PROGRESS")
	for _, b := range books {
		progress := fmt.Sprintf("%d/%d", b.CurrentPage, b.TotalPages)
		fmt.Printf("%-5d %-30s %-20s %-10s %s\n",
			b.ID, truncate(b.Title, 30), truncate(b.Author, 20), b.Status, progress)
	}
	return nil
}

func runBookSet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	fields := map[string]interface{}{}
	if bookSetPage >= 0 {
		fields["current_page"] = bookSetPage
	}
	if bookSetStatus != "" {
		if err := domain.ValidateBookStatus(bookSetStatus); err != nil {
			return err
		}
		fields["status"] = bookSetStatus
		if domain.BookStatus(bookSetStatus) == domain.BookStatusCompleted {
			fields["completed_date"] = time.Now().UTC().Format("2006-01-02T15:04:05Z")
		}
	}
	if len(fields) == 0 {
		return fmt.Errorf("nothing to update; use --page or --status")
	}

	return st.Books.UpdateFields(id, fields)
}

func runBookRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, database, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := st.Books.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted book %d\n", id)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
