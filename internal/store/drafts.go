package store

import (
	"database/sql"
	"fmt"

	"github.com/memosuite/memoq/internal/domain"
)

// DraftStore handles autosave draft persistence operations.
type DraftStore struct {
	store *Store
}

const draftColumns = `id, original_id, book_id, title, content, tags,
	page_number, quote, comment_draft, created_at`

// Get retrieves a draft by id.
func (ds *DraftStore) Get(id int64) (*domain.Draft, error) {
	return scanDraft(ds.store.db.QueryRow(
		`SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id))
}

// Put writes a draft. With a zero ID a new row is inserted and its id
// returned; otherwise the existing row is overwritten in place. createdAt
// always moves forward so the row stays newest for cap/recovery ordering.
func (ds *DraftStore) Put(draft *domain.Draft) (int64, error) {
	if draft.ID == 0 {
		res, err := ds.store.db.Exec(`
			INSERT INTO drafts (original_id, book_id, title, content, tags,
			                    page_number, quote, comment_draft)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, draft.OriginalID, draft.BookID, draft.Title, draft.Content,
			draft.Tags, draft.PageNumber, draft.Quote, draft.CommentDraft)
		if err != nil {
			return 0, fmt.Errorf("failed to create draft: %w", err)
		}
		return res.LastInsertId()
	}

	res, err := ds.store.db.Exec(`
		UPDATE drafts SET original_id = ?, book_id = ?, title = ?, content = ?,
			tags = ?, page_number = ?, quote = ?, comment_draft = ?,
			created_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
		WHERE id = ?
	`, draft.OriginalID, draft.BookID, draft.Title, draft.Content,
		draft.Tags, draft.PageNumber, draft.Quote, draft.CommentDraft, draft.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to update draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("draft not found: %d", draft.ID)
	}
	return draft.ID, nil
}

// Delete removes a draft.
func (ds *DraftStore) Delete(id int64) error {
	if _, err := ds.store.db.Exec("DELETE FROM drafts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// DeleteForKey removes every draft for an edit key: all drafts shadowing
// the given memo, or, with a nil originalID, all new-memo drafts scoped to
// the given book.
func (ds *DraftStore) DeleteForKey(originalID, bookID *int64) error {
	var err error
	switch {
	case originalID != nil:
		_, err = ds.store.db.Exec("DELETE FROM drafts WHERE original_id = ?", *originalID)
	case bookID != nil:
		_, err = ds.store.db.Exec(
			"DELETE FROM drafts WHERE original_id IS NULL AND book_id = ?", *bookID)
	default:
		_, err = ds.store.db.Exec(
			"DELETE FROM drafts WHERE original_id IS NULL AND book_id IS NULL")
	}
	if err != nil {
		return fmt.Errorf("failed to delete drafts: %w", err)
	}
	return nil
}

// LatestForKey returns the newest draft for an edit key, or nil when none
// exists.
func (ds *DraftStore) LatestForKey(originalID, bookID *int64) (*domain.Draft, error) {
	var row *sql.Row
	switch {
	case originalID != nil:
		row = ds.store.db.QueryRow(`
			SELECT `+draftColumns+` FROM drafts WHERE original_id = ?
			ORDER BY created_at DESC, id DESC LIMIT 1
		`, *originalID)
	case bookID != nil:
		row = ds.store.db.QueryRow(`
			SELECT `+draftColumns+` FROM drafts
			WHERE original_id IS NULL AND book_id = ?
			ORDER BY created_at DESC, id DESC LIMIT 1
		`, *bookID)
	default:
		row = ds.store.db.QueryRow(`
			SELECT ` + draftColumns + ` FROM drafts
			WHERE original_id IS NULL AND book_id IS NULL
			ORDER BY created_at DESC, id DESC LIMIT 1
		`)
	}

	draft, err := scanDraft(row)
	if err != nil {
		if err == errDraftNotFound {
			return nil, nil
		}
		return nil, err
	}
	return draft, nil
}

// List returns all drafts, oldest first.
func (ds *DraftStore) List() ([]*domain.Draft, error) {
	rows, err := ds.store.db.Query(
		`SELECT ` + draftColumns + ` FROM drafts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*domain.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, rows.Err()
}

// EnforceCap deletes the oldest rows beyond limit, globally across keys.
// Returns the number of rows purged.
func (ds *DraftStore) EnforceCap(limit int) (int, error) {
	var count int
	if err := ds.store.db.QueryRow("SELECT COUNT(*) FROM drafts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count drafts: %w", err)
	}
	excess := count - limit
	if excess <= 0 {
		return 0, nil
	}

	res, err := ds.store.db.Exec(`
		DELETE FROM drafts WHERE id IN (
			SELECT id FROM drafts ORDER BY created_at, id LIMIT ?
		)
	`, excess)
	if err != nil {
		return 0, fmt.Errorf("failed to prune drafts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

var errDraftNotFound = fmt.Errorf("draft not found")

func scanDraft(row rowScanner) (*domain.Draft, error) {
	draft := &domain.Draft{}
	var createdAt string
	err := row.Scan(&draft.ID, &draft.OriginalID, &draft.BookID, &draft.Title,
		&draft.Content, &draft.Tags, &draft.PageNumber, &draft.Quote,
		&draft.CommentDraft, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errDraftNotFound
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if draft.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse draft created_at: %w", err)
	}
	return draft, nil
}
