package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/memosuite/memoq/internal/config"
	"github.com/memosuite/memoq/internal/domain"
	"github.com/memosuite/memoq/internal/draft"
	"github.com/memosuite/memoq/internal/store"
	"github.com/memosuite/memoq/internal/testutil"
)

// setupTestEnv creates a migrated database and points the CLI at it.
func setupTestEnv(t *testing.T) (*store.Store, string) {
	t.Helper()
	database, dbPath := testutil.TempDB(t)
	t.Setenv("MEMOQ_DB_PATH", dbPath)
	t.Setenv("MEMOQ_BACKUP_PASSWORD", "")
	return store.New(database), dbPath
}

// runCLI executes a command line against the package-level root command,
// resetting flag state that earlier tests may have left behind.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	exportMemoID, exportThread, exportPassword, exportDescribe = 0, false, "", false
	importPassword = ""
	memoContent, memoBookID, memoTags, memoPage, memoQuote = "", 0, nil, 0, ""
	memoLsBook = 0
	bookAuthor, bookTotalPages, bookFolder = "", 0, ""
	bookSetPage, bookSetStatus = -1, ""
	migrateStatus = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBookAndMemoCommands(t *testing.T) {
	st, _ := setupTestEnv(t)

	if _, err := runCLI(t, "book", "add", "Dune", "-a", "Frank Herbert", "-p", "412"); err != nil {
		t.Fatalf("book add failed: %v", err)
	}
	books, err := st.Books.List()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(books))
	testutil.AssertEqual(t, "Dune", books[0].Title)

	if _, err := runCLI(t, "memo", "add", "Spice",
		"-b", "1", "-c", "He who controls the spice", "--page", "12"); err != nil {
		t.Fatalf("memo add failed: %v", err)
	}
	memos, err := st.Memos.ListByBook(books[0].ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(memos))
	testutil.AssertEqual(t, "He who controls the spice", memos[0].Content)

	if _, err := runCLI(t, "comment", "add", "1", "revisit this"); err != nil {
		t.Fatalf("comment add failed: %v", err)
	}
	comments, err := st.Comments.ListByMemo(memos[0].ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(comments))
}

func TestMemoAppendBuildsThread(t *testing.T) {
	st, _ := setupTestEnv(t)

	if _, err := runCLI(t, "memo", "add", "head", "-c", "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "memo", "append", "1", "follow-up", "-c", "second"); err != nil {
		t.Fatal(err)
	}

	head, err := st.Memos.Get(1)
	testutil.AssertNoError(t, err)
	if head.ThreadID == nil {
		t.Fatal("expected append to mint a thread")
	}
	siblings, err := st.Memos.ListByThread(*head.ThreadID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, len(siblings))
	testutil.AssertEqual(t, "follow-up", siblings[1].Title)
}

func TestExportImportRoundTrip(t *testing.T) {
	source, _ := setupTestEnv(t)

	bookID, err := source.Books.Add(&domain.Book{
		Title: "Dune", Author: "Frank Herbert", Status: domain.BookStatusReading,
	})
	testutil.AssertNoError(t, err)
	memoID, err := source.Memos.Add(&domain.Memo{
		Title: "Spice", Content: "notes", BookID: &bookID, Type: domain.MemoTypeNormal,
	})
	testutil.AssertNoError(t, err)
	_, err = source.Comments.Add(&domain.Comment{MemoID: memoID, Content: "hm"})
	testutil.AssertNoError(t, err)

	backupFile := filepath.Join(t.TempDir(), "roundtrip.json")
	if _, err := runCLI(t, "export", backupFile); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	// Import into a second, empty database.
	dest, _ := setupTestEnv(t)
	if _, err := runCLI(t, "import", backupFile); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	books, err := dest.Books.List()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(books))
	memos, err := dest.Memos.ListByBook(books[0].ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(memos))
	comments, err := dest.Comments.ListByMemo(memos[0].ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(comments))
}

func TestImportEncryptedBackup(t *testing.T) {
	source, _ := setupTestEnv(t)
	_, err := source.Memos.Add(&domain.Memo{
		Title: "secret note", Content: "hidden", Type: domain.MemoTypeNormal,
	})
	testutil.AssertNoError(t, err)

	backupFile := filepath.Join(t.TempDir(), "secret.json")
	if _, err := runCLI(t, "export", backupFile, "--password", "hunter2"); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	dest, _ := setupTestEnv(t)
	if _, err := runCLI(t, "import", backupFile); err == nil {
		t.Fatal("expected import without password to fail")
	}
	if _, err := runCLI(t, "import", backupFile, "--password", "hunter2"); err != nil {
		t.Fatalf("import with password failed: %v", err)
	}

	memos, err := dest.Memos.List()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(memos))
	testutil.AssertEqual(t, "secret note", memos[0].Title)
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fresh.db")
	t.Setenv("MEMOQ_DB_PATH", dbPath)

	if _, err := runCLI(t, "migrate"); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	// Re-running finds nothing pending.
	if _, err := runCLI(t, "migrate"); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestReconcilerHonorsConfiguredInterval(t *testing.T) {
	st, _ := setupTestEnv(t)

	rec := newReconciler(st, &config.Config{AutosaveSeconds: 3})
	testutil.AssertEqual(t, 3*time.Second, rec.Interval())

	// Zero or missing config falls back to the built-in period.
	rec = newReconciler(st, &config.Config{})
	testutil.AssertEqual(t, draft.DefaultInterval, rec.Interval())
	rec = newReconciler(st, nil)
	testutil.AssertEqual(t, draft.DefaultInterval, rec.Interval())
}
