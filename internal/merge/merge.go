package merge

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/memosuite/memoq/internal/backup"
	"github.com/memosuite/memoq/internal/domain"
	"github.com/memosuite/memoq/internal/store"
)

// ErrMergeInProgress is returned when a merge is requested while another
// one is running. Concurrent merges against overlapping entities would
// corrupt the id-translation invariant, so the second request is rejected
// rather than interleaved.
var ErrMergeInProgress = errors.New("a merge is already in progress")

// Counts tallies how a merge handled one entity type.
type Counts struct {
	Inserted int `json:"inserted"`
	Matched  int `json:"matched"`
	Skipped  int `json:"skipped,omitempty"`
}

// Report summarizes a merge for the caller's confirmation UI. It is
// best-effort bookkeeping, not a correctness artifact.
type Report struct {
	Folders  Counts `json:"folders"`
	Books    Counts `json:"books"`
	Memos    Counts `json:"memos"`
	Comments Counts `json:"comments"`
}

// Engine applies backup payloads to the store. All stages of one Merge
// call run inside a single transaction in strict dependency order: folders,
// then books, then memos, then comments, each stage feeding id-translation
// tables to the next.
type Engine struct {
	store    *store.Store
	matchers Matchers

	mu     sync.Mutex
	active atomic.Bool
}

// NewEngine creates a merge engine over the given store.
func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st, matchers: NewMatchers()}
}

// InProgress reports whether a merge is currently running. Callers that
// write to the store on their own schedule (the autosave loop in
// particular) are required to check this guard and stand down while a
// merge is active.
func (e *Engine) InProgress() bool {
	return e.active.Load()
}

// Merge applies a decoded payload. On success every comment in the store
// still resolves to a memo, and replaying the same payload is a no-op.
func (e *Engine) Merge(payload *backup.Payload) (*Report, error) {
	if !e.mu.TryLock() {
		return nil, ErrMergeInProgress
	}
	defer e.mu.Unlock()

	e.active.Store(true)
	defer e.active.Store(false)

	report := &Report{}
	err := e.store.WithTx(func(tx *sql.Tx) error {
		defaultFolderID, err := resolveDefaultFolder(tx)
		if err != nil {
			return err
		}

		folderIDs, err := e.mergeFolders(tx, payload.Folders, report)
		if err != nil {
			return err
		}

		bookIDs, err := e.mergeBooks(tx, payload.Books, folderIDs, defaultFolderID, report)
		if err != nil {
			return err
		}

		memoIDs, err := e.mergeMemos(tx, payload.Memos, bookIDs, folderIDs, defaultFolderID, report)
		if err != nil {
			return err
		}

		return e.mergeComments(tx, payload.Comments, memoIDs, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func resolveDefaultFolder(tx *sql.Tx) (*int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM folders WHERE name = 'Default'").Scan(&id)
	if err == sql.ErrNoRows {
		err = tx.QueryRow("SELECT id FROM folders ORDER BY id LIMIT 1").Scan(&id)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default folder: %w", err)
	}
	return &id, nil
}

// mergeFolders matches incoming folders by name, inserting the rest, and
// returns the folder id-translation table. Only full backups carry
// folders; partial imports land in the recipient's folder layout.
func (e *Engine) mergeFolders(tx *sql.Tx, folders []backup.FolderEntry, report *Report) (map[int64]int64, error) {
	idMap := make(map[int64]int64)
	if len(folders) == 0 {
		return idMap, nil
	}

	byName := make(map[string]int64)
	rows, err := tx.Query("SELECT id, name FROM folders")
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		byName[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, f := range folders {
		if existing, ok := byName[f.Name]; ok {
			idMap[f.ID] = existing
			report.Folders.Matched++
			continue
		}

		createdAt, updatedAt, err := coerceWireTimes(f.CreatedAt, f.UpdatedAt)
		if err != nil {
			report.Folders.Skipped++
			continue
		}

		res, err := tx.Exec(`
			INSERT INTO folders (name, is_read_only, exclude_from_global_search, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, f.Name, f.IsReadOnly, f.ExcludeFromGlobalSearch,
			store.FormatTime(createdAt), store.FormatTime(updatedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert folder %q: %w", f.Name, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get folder id: %w", err)
		}
		idMap[f.ID] = newID
		byName[f.Name] = newID
		report.Folders.Inserted++
	}

	return idMap, nil
}

// mergeBooks runs the book stage. A matched book never regresses: the
// reading position only moves forward and a completed book stays
// completed.
func (e *Engine) mergeBooks(tx *sql.Tx, books []backup.BookEntry, folderIDs map[int64]int64, defaultFolderID *int64, report *Report) (map[int64]int64, error) {
	idMap := make(map[int64]int64)

	for _, b := range books {
		localID, hit, err := e.matchers.Book(tx, b.Title, b.Author)
		if err != nil {
			return nil, err
		}

		if hit {
			idMap[b.ID] = localID
			report.Books.Matched++
			if err := applyBookProgress(tx, localID, b); err != nil {
				return nil, err
			}
			continue
		}

		createdAt, updatedAt, err := coerceWireTimes(b.CreatedAt, b.UpdatedAt)
		if err != nil {
			report.Books.Skipped++
			continue
		}
		startDate, err := backup.ParseWireTimePtr(b.StartDate)
		if err != nil {
			report.Books.Skipped++
			continue
		}
		completedDate, _ := backup.ParseWireTimePtr(b.CompletedDate)
		pinnedAt, _ := backup.ParseWireTimePtr(b.PinnedAt)

		status := b.Status
		if domain.ValidateBookStatus(status) != nil {
			status = string(domain.BookStatusReading)
		}

		res, err := tx.Exec(`
			INSERT INTO books (title, author, total_pages, current_page, status,
			                   start_date, completed_date, folder_id, pinned_at,
			                   created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, b.Title, b.Author, b.TotalPages, b.CurrentPage, status,
			formatPtr(startDate), formatPtr(completedDate),
			remapFolder(b.FolderID, folderIDs, defaultFolderID), formatPtr(pinnedAt),
			store.FormatTime(createdAt), store.FormatTime(updatedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert book %q: %w", b.Title, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get book id: %w", err)
		}
		idMap[b.ID] = newID
		report.Books.Inserted++
	}

	return idMap, nil
}

// applyBookProgress merges an incoming book into its matched local row.
// current_page is raised only when the incoming value is greater, and
// status is promoted to completed only when the local book is not already
// completed.
func applyBookProgress(tx *sql.Tx, localID int64, b backup.BookEntry) error {
	var currentPage int
	var status string
	err := tx.QueryRow("SELECT current_page, status FROM books WHERE id = ?", localID).
		Scan(&currentPage, &status)
	if err != nil {
		return fmt.Errorf("failed to read matched book: %w", err)
	}

	changed := false
	if b.CurrentPage > currentPage {
		if _, err := tx.Exec("UPDATE books SET current_page = ? WHERE id = ?",
			b.CurrentPage, localID); err != nil {
			return fmt.Errorf("failed to update book progress: %w", err)
		}
		changed = true
	}

	if b.Status == string(domain.BookStatusCompleted) && status != string(domain.BookStatusCompleted) {
		completedDate, err := backup.ParseWireTimePtr(b.CompletedDate)
		if err != nil {
			completedDate = nil
		}
		if _, err := tx.Exec("UPDATE books SET status = ?, completed_date = ? WHERE id = ?",
			domain.BookStatusCompleted, formatPtr(completedDate), localID); err != nil {
			return fmt.Errorf("failed to complete book: %w", err)
		}
		changed = true
	}

	if changed {
		if _, err := tx.Exec(
			"UPDATE books SET updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE id = ?",
			localID); err != nil {
			return fmt.Errorf("failed to touch book: %w", err)
		}
	}
	return nil
}

// mergeMemos runs the memo stage. Matched memos keep the local content
// untouched (first write wins); inserted memos have their book and folder
// references remapped through the translation tables, with dangling
// references dropped rather than pointed at unrelated local rows.
func (e *Engine) mergeMemos(tx *sql.Tx, memos []backup.MemoEntry, bookIDs, folderIDs map[int64]int64, defaultFolderID *int64, report *Report) (map[int64]int64, error) {
	idMap := make(map[int64]int64)
	touchedThreads := make(map[string]bool)

	// Matching is bounded to the memos that existed before this stage so
	// an in-payload pair with the same title and nearby timestamps lands
	// as two memos instead of the second matching the first's insert.
	var preStageMaxID int64
	if err := tx.QueryRow("SELECT COALESCE(MAX(id), 0) FROM memos").Scan(&preStageMaxID); err != nil {
		return nil, fmt.Errorf("failed to snapshot memo ids: %w", err)
	}

	for _, m := range memos {
		createdAt, updatedAt, err := coerceWireTimes(m.CreatedAt, m.UpdatedAt)
		if err != nil {
			report.Memos.Skipped++
			continue
		}

		localID, hit, err := e.matchers.Memo(tx, m.Title, createdAt, preStageMaxID)
		if err != nil {
			return nil, err
		}
		if hit {
			idMap[m.ID] = localID
			report.Memos.Matched++
			continue
		}

		var bookID *int64
		if m.BookID != nil {
			if mapped, ok := bookIDs[*m.BookID]; ok {
				bookID = &mapped
			}
			// No entry in the translation table means the owning book was
			// not part of this payload: leave the reference unset.
		}

		memoType := m.Type
		if memoType == "" || domain.ValidateMemoType(memoType) != nil {
			memoType = string(domain.MemoTypeNormal)
		}

		tags, err := tagsJSON(m.Tags)
		if err != nil {
			return nil, err
		}
		pinnedAt, _ := backup.ParseWireTimePtr(m.PinnedAt)

		res, err := tx.Exec(`
			INSERT INTO memos (book_id, folder_id, title, content, tags, page_number,
			                   quote, type, thread_id, thread_order, pinned_at,
			                   created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, bookID, remapFolder(m.FolderID, folderIDs, defaultFolderID),
			m.Title, m.Content, tags, m.PageNumber, m.Quote, memoType,
			m.ThreadID, m.ThreadOrder, formatPtr(pinnedAt),
			store.FormatTime(createdAt), store.FormatTime(updatedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert memo %q: %w", m.Title, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get memo id: %w", err)
		}
		idMap[m.ID] = newID
		report.Memos.Inserted++

		if m.ThreadID != nil {
			touchedThreads[*m.ThreadID] = true
		}
	}

	// Inserts may have landed beside existing thread members with
	// colliding or gapped orders; restore the dense 0..n-1 invariant.
	for threadID := range touchedThreads {
		if err := store.RenumberThread(tx, threadID); err != nil {
			return nil, err
		}
	}

	return idMap, nil
}

// mergeComments runs the comment stage. A comment whose owner cannot be
// resolved through the memo translation table is skipped, never
// orphan-inserted.
func (e *Engine) mergeComments(tx *sql.Tx, comments []backup.CommentEntry, memoIDs map[int64]int64, report *Report) error {
	for _, c := range comments {
		ownerID := c.OwnerID()
		if ownerID == nil {
			report.Comments.Skipped++
			continue
		}
		localMemoID, ok := memoIDs[*ownerID]
		if !ok {
			report.Comments.Skipped++
			continue
		}

		createdAt, err := backup.ParseWireTime(c.CreatedAt)
		if err != nil {
			report.Comments.Skipped++
			continue
		}
		updatedAt := createdAt
		if c.UpdatedAt != "" {
			if t, err := backup.ParseWireTime(c.UpdatedAt); err == nil {
				updatedAt = t
			}
		}

		hit, err := e.matchers.Comment(tx, localMemoID, c.Content, createdAt)
		if err != nil {
			return err
		}
		if hit {
			report.Comments.Matched++
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO comments (memo_id, content, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, localMemoID, c.Content, store.FormatTime(createdAt), store.FormatTime(updatedAt)); err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		report.Comments.Inserted++
	}
	return nil
}

func coerceWireTimes(created, updated string) (time.Time, time.Time, error) {
	createdAt, err := backup.ParseWireTime(created)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	updatedAt := createdAt
	if updated != "" {
		if t, err := backup.ParseWireTime(updated); err == nil {
			updatedAt = t
		}
	}
	return createdAt, updatedAt, nil
}

func remapFolder(folderID *int64, folderIDs map[int64]int64, defaultFolderID *int64) *int64 {
	if folderID != nil {
		if mapped, ok := folderIDs[*folderID]; ok {
			return &mapped
		}
	}
	return defaultFolderID
}

func formatPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return store.FormatTime(*t)
}

func tagsJSON(tags []string) (*string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	m := &domain.Memo{}
	if err := m.SetTags(tags); err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return m.Tags, nil
}
