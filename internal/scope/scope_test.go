package scope

import (
	"testing"

	"github.com/memosuite/memoq/internal/domain"
	"github.com/memosuite/memoq/internal/store"
	"github.com/memosuite/memoq/internal/testutil"
)

// threadFixture builds a book with a three-memo thread and one loose memo.
func threadFixture(t *testing.T) (st *store.Store, bookID int64, thread []int64, loose int64) {
	t.Helper()
	st = testutil.TempStore(t)

	var err error
	bookID, err = st.Books.Add(&domain.Book{Title: "Dune", Status: domain.BookStatusReading})
	testutil.AssertNoError(t, err)

	head, err := st.Memos.Add(&domain.Memo{
		Title: "head", Content: "h", BookID: &bookID, Type: domain.MemoTypeNormal,
	})
	testutil.AssertNoError(t, err)
	thread = []int64{head}
	for _, title := range []string{"second", "third"} {
		id, err := st.Memos.AppendToThread(head, &domain.Memo{
			Title: title, Content: title, BookID: &bookID, Type: domain.MemoTypeNormal,
		})
		testutil.AssertNoError(t, err)
		thread = append(thread, id)
	}

	loose, err = st.Memos.Add(&domain.Memo{Title: "loose", Content: "l", Type: domain.MemoTypeNormal})
	testutil.AssertNoError(t, err)
	return st, bookID, thread, loose
}

func TestSelectFull(t *testing.T) {
	st, _, thread, _ := threadFixture(t)
	_, err := st.Comments.Add(&domain.Comment{MemoID: thread[0], Content: "c"})
	testutil.AssertNoError(t, err)

	sel, err := NewSelector(st).Select(KindFull, 0)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, KindFull, sel.Kind)
	testutil.AssertEqual(t, 4, len(sel.MemoIDs))
	testutil.AssertEqual(t, 1, len(sel.BookIDs))
	testutil.AssertEqual(t, 1, len(sel.CommentIDs))
	if !sel.IncludeFolders {
		t.Error("expected full selection to include folders")
	}
}

func TestSelectSingle(t *testing.T) {
	st, bookID, thread, _ := threadFixture(t)
	_, err := st.Comments.Add(&domain.Comment{MemoID: thread[1], Content: "on second"})
	testutil.AssertNoError(t, err)

	sel, err := NewSelector(st).Select(KindSingle, thread[1])
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, KindSingle, sel.Kind)
	testutil.AssertEqual(t, 1, len(sel.MemoIDs))
	testutil.AssertEqual(t, thread[1], sel.MemoIDs[0])
	testutil.AssertEqual(t, 1, len(sel.BookIDs))
	testutil.AssertEqual(t, bookID, sel.BookIDs[0])
	testutil.AssertEqual(t, 1, len(sel.CommentIDs))
	if sel.IncludeFolders {
		t.Error("partial selection must not include folders")
	}
}

func TestSelectThreadFromHead(t *testing.T) {
	st, _, thread, _ := threadFixture(t)

	sel, err := NewSelector(st).Select(KindThread, thread[0])
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, KindThread, sel.Kind)
	testutil.AssertEqual(t, 3, len(sel.MemoIDs))
	for i, want := range thread {
		testutil.AssertEqual(t, want, sel.MemoIDs[i])
	}
}

func TestSelectThreadFromNonHeadDegradesToSingle(t *testing.T) {
	st, _, thread, _ := threadFixture(t)

	sel, err := NewSelector(st).Select(KindThread, thread[2])
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, KindSingle, sel.Kind)
	testutil.AssertEqual(t, 1, len(sel.MemoIDs))
	testutil.AssertEqual(t, thread[2], sel.MemoIDs[0])
}

func TestSelectThreadOnUnthreadedMemo(t *testing.T) {
	st, _, _, loose := threadFixture(t)

	sel, err := NewSelector(st).Select(KindThread, loose)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, KindSingle, sel.Kind)
	testutil.AssertEqual(t, 1, len(sel.MemoIDs))
}

func TestDescribe(t *testing.T) {
	st, _, thread, _ := threadFixture(t)
	selector := NewSelector(st)

	full, err := selector.Describe(nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, KindFull, full.Type)
	testutil.AssertEqual(t, 4, full.Count)
	testutil.AssertEqual(t, "All Data", full.Label)

	head, err := selector.Describe(&thread[0])
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, KindThread, head.Type)
	testutil.AssertEqual(t, 3, head.Count)
	testutil.AssertEqual(t, "head", head.Label)

	tail, err := selector.Describe(&thread[2])
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, KindSingle, tail.Type)
	testutil.AssertEqual(t, 1, tail.Count)
}

func TestSelectUnknownKind(t *testing.T) {
	st := testutil.TempStore(t)
	_, err := NewSelector(st).Select(Kind("everything"), 0)
	testutil.AssertError(t, err)
}
