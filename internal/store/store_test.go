package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/memosuite/memoq/internal/db"
	"github.com/memosuite/memoq/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if _, err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return New(database)
}

func addBook(t *testing.T, st *Store, title, author string) int64 {
	t.Helper()
	id, err := st.Books.Add(&domain.Book{
		Title:  title,
		Author: author,
		Status: domain.BookStatusReading,
	})
	if err != nil {
		t.Fatalf("failed to add book: %v", err)
	}
	return id
}

func addMemo(t *testing.T, st *Store, title string, bookID *int64) int64 {
	t.Helper()
	id, err := st.Memos.Add(&domain.Memo{
		Title:   title,
		Content: "content of " + title,
		BookID:  bookID,
		Type:    domain.MemoTypeNormal,
	})
	if err != nil {
		t.Fatalf("failed to add memo: %v", err)
	}
	return id
}

func TestMigrationSeedsDefaultFolder(t *testing.T) {
	st := newTestStore(t)

	folder, err := st.Folders.Default()
	if err != nil {
		t.Fatalf("expected seeded default folder: %v", err)
	}
	if folder.Name != "Default" {
		t.Errorf("expected folder name Default, got %q", folder.Name)
	}
	if !folder.IsReadOnly {
		t.Error("expected default folder to be read-only")
	}
}

func TestBookRoundTrip(t *testing.T) {
	st := newTestStore(t)

	id := addBook(t, st, "Dune", "Frank Herbert")
	book, err := st.Books.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if book.Title != "Dune" || book.Author != "Frank Herbert" {
		t.Errorf("unexpected book: %+v", book)
	}
	if book.Status != domain.BookStatusReading {
		t.Errorf("expected status reading, got %s", book.Status)
	}
	if book.CreatedAt.IsZero() || book.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestBookAddPreservesExplicitTimestamps(t *testing.T) {
	st := newTestStore(t)

	created := time.Date(2023, 5, 1, 10, 30, 0, 0, time.UTC)
	id, err := st.Books.Add(&domain.Book{
		Title:     "Old Import",
		Status:    domain.BookStatusReading,
		CreatedAt: created,
		UpdatedAt: created,
	})
	if err != nil {
		t.Fatal(err)
	}

	book, err := st.Books.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if !book.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v, got %v", created, book.CreatedAt)
	}
}

func TestBookUpdateFields(t *testing.T) {
	st := newTestStore(t)
	id := addBook(t, st, "Dune", "Frank Herbert")

	err := st.Books.UpdateFields(id, map[string]interface{}{
		"current_page": 120,
		"status":       "completed",
	})
	if err != nil {
		t.Fatal(err)
	}

	book, err := st.Books.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if book.CurrentPage != 120 {
		t.Errorf("expected current_page 120, got %d", book.CurrentPage)
	}
	if book.Status != domain.BookStatusCompleted {
		t.Errorf("expected status completed, got %s", book.Status)
	}
}

func TestBookDeleteCascades(t *testing.T) {
	st := newTestStore(t)
	bookID := addBook(t, st, "Dune", "Frank Herbert")
	memoID := addMemo(t, st, "note", &bookID)
	if _, err := st.Comments.Add(&domain.Comment{MemoID: memoID, Content: "hm"}); err != nil {
		t.Fatal(err)
	}

	if err := st.Books.Delete(bookID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Memos.Get(memoID); err == nil {
		t.Error("expected memo to be deleted with its book")
	}
	comments, err := st.Comments.ListByMemo(memoID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 0 {
		t.Errorf("expected comments to be deleted, got %d", len(comments))
	}
}

func TestCommentRejectsOrphan(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Comments.Add(&domain.Comment{MemoID: 9999, Content: "floating"})
	if err == nil {
		t.Fatal("expected foreign key to reject comment without a memo")
	}
}

func TestAppendToThreadMintsThread(t *testing.T) {
	st := newTestStore(t)
	anchorID := addMemo(t, st, "first", nil)

	followID, err := st.Memos.AppendToThread(anchorID, &domain.Memo{
		Title:   "second",
		Content: "follow-up",
		Type:    domain.MemoTypeNormal,
	})
	if err != nil {
		t.Fatal(err)
	}

	anchor, err := st.Memos.Get(anchorID)
	if err != nil {
		t.Fatal(err)
	}
	follow, err := st.Memos.Get(followID)
	if err != nil {
		t.Fatal(err)
	}

	if anchor.ThreadID == nil || follow.ThreadID == nil {
		t.Fatal("expected both memos to have a thread id")
	}
	if *anchor.ThreadID != *follow.ThreadID {
		t.Error("expected memos to share a thread id")
	}
	if anchor.ThreadOrder == nil || *anchor.ThreadOrder != 0 {
		t.Errorf("expected anchor order 0, got %v", anchor.ThreadOrder)
	}
	if follow.ThreadOrder == nil || *follow.ThreadOrder != 1 {
		t.Errorf("expected follow-up order 1, got %v", follow.ThreadOrder)
	}
}

func TestDeleteRenumbersThread(t *testing.T) {
	st := newTestStore(t)
	anchorID := addMemo(t, st, "first", nil)

	var ids []int64
	for _, title := range []string{"second", "third", "fourth"} {
		id, err := st.Memos.AppendToThread(anchorID, &domain.Memo{
			Title: title, Content: title, Type: domain.MemoTypeNormal,
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	// Remove the middle memo; survivors must be dense again.
	if err := st.Memos.Delete(ids[0]); err != nil {
		t.Fatal(err)
	}

	anchor, err := st.Memos.Get(anchorID)
	if err != nil {
		t.Fatal(err)
	}
	siblings, err := st.Memos.ListByThread(*anchor.ThreadID)
	if err != nil {
		t.Fatal(err)
	}
	if len(siblings) != 3 {
		t.Fatalf("expected 3 siblings, got %d", len(siblings))
	}
	for i, m := range siblings {
		if m.ThreadOrder == nil || *m.ThreadOrder != i {
			t.Errorf("expected dense order %d, got %v for %s", i, m.ThreadOrder, m.Title)
		}
	}
}

func TestDraftPutUpdatesInPlace(t *testing.T) {
	st := newTestStore(t)
	memoID := addMemo(t, st, "note", nil)

	id, err := st.Drafts.Put(&domain.Draft{OriginalID: &memoID, Title: "v1", Content: "one"})
	if err != nil {
		t.Fatal(err)
	}

	id2, err := st.Drafts.Put(&domain.Draft{ID: id, OriginalID: &memoID, Title: "v2", Content: "two"})
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Errorf("expected same draft id, got %d and %d", id, id2)
	}

	drafts, err := st.Drafts.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected a single draft row, got %d", len(drafts))
	}
	if drafts[0].Content != "two" {
		t.Errorf("expected updated content, got %q", drafts[0].Content)
	}
}

func TestDraftLatestForKey(t *testing.T) {
	st := newTestStore(t)
	memoID := addMemo(t, st, "note", nil)

	missing, err := st.Drafts.LatestForKey(&memoID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatal("expected nil for key without drafts")
	}

	if _, err := st.Drafts.Put(&domain.Draft{OriginalID: &memoID, Content: "a"}); err != nil {
		t.Fatal(err)
	}
	latest, err := st.Drafts.LatestForKey(&memoID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Content != "a" {
		t.Fatalf("expected latest draft, got %+v", latest)
	}
}

func TestDraftEnforceCap(t *testing.T) {
	st := newTestStore(t)

	var first int64
	for i := 0; i < 25; i++ {
		id, err := st.Drafts.Put(&domain.Draft{Title: "d", Content: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = id
		}
	}

	deleted, err := st.Drafts.EnforceCap(20)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 5 {
		t.Errorf("expected 5 deletions, got %d", deleted)
	}

	drafts, err := st.Drafts.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 20 {
		t.Fatalf("expected 20 drafts, got %d", len(drafts))
	}
	// Oldest rows go first; the earliest five inserts must be gone.
	if drafts[0].ID != first+5 {
		t.Errorf("expected oldest surviving draft id %d, got %d", first+5, drafts[0].ID)
	}
}
