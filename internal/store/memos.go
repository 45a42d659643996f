package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/memosuite/memoq/internal/domain"
)

// MemoStore handles memo persistence operations.
type MemoStore struct {
	store *Store
}

const memoColumns = `id, book_id, folder_id, title, content, tags, page_number,
	quote, type, thread_id, thread_order, pinned_at, created_at, updated_at`

// Get retrieves a memo by id.
func (ms *MemoStore) Get(id int64) (*domain.Memo, error) {
	return scanMemo(ms.store.db.QueryRow(
		`SELECT `+memoColumns+` FROM memos WHERE id = ?`, id))
}

// Add inserts a memo and returns its id. As with books, explicit
// timestamps survive the insert so imported records keep their history.
func (ms *MemoStore) Add(memo *domain.Memo) (int64, error) {
	if memo.Type == "" {
		memo.Type = domain.MemoTypeNormal
	}

	query := `
		INSERT INTO memos (book_id, folder_id, title, content, tags, page_number,
		                   quote, type, thread_id, thread_order, pinned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		memo.BookID, memo.FolderID, memo.Title, memo.Content, memo.Tags,
		memo.PageNumber, memo.Quote, memo.Type, memo.ThreadID,
		memo.ThreadOrder, formatTimePtr(memo.PinnedAt),
	}
	if !memo.CreatedAt.IsZero() {
		query = `
			INSERT INTO memos (book_id, folder_id, title, content, tags, page_number,
			                   quote, type, thread_id, thread_order, pinned_at,
			                   created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		args = append(args, FormatTime(memo.CreatedAt), FormatTime(memo.UpdatedAt))
	}

	res, err := ms.store.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to create memo: %w", err)
	}
	return res.LastInsertId()
}

// UpdateFields updates the given columns on a memo and bumps updated_at.
func (ms *MemoStore) UpdateFields(id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	var setClauses []string
	var args []interface{}
	for key, value := range fields {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", key))
		args = append(args, value)
	}
	setClauses = append(setClauses, "updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE memos SET %s WHERE id = ?", strings.Join(setClauses, ", "))
	res, err := ms.store.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update memo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memo not found: %d", id)
	}
	return nil
}

// Delete removes a memo, its comments, and renumbers its thread.
func (ms *MemoStore) Delete(id int64) error {
	return ms.store.WithTx(func(tx *sql.Tx) error {
		var threadID *string
		err := tx.QueryRow("SELECT thread_id FROM memos WHERE id = ?", id).Scan(&threadID)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("memo not found: %d", id)
			}
			return fmt.Errorf("failed to get memo: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM comments WHERE memo_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM memos WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete memo: %w", err)
		}

		if threadID != nil {
			if err := RenumberThread(tx, *threadID); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns all memos ordered by creation time, newest first.
func (ms *MemoStore) List() ([]*domain.Memo, error) {
	return ms.queryMemos(
		`SELECT ` + memoColumns + ` FROM memos ORDER BY created_at DESC, id DESC`)
}

// ListByBook returns the memos attached to a book, oldest first.
func (ms *MemoStore) ListByBook(bookID int64) ([]*domain.Memo, error) {
	return ms.queryMemos(
		`SELECT `+memoColumns+` FROM memos WHERE book_id = ? ORDER BY created_at, id`, bookID)
}

// ListByThread returns the memos in a thread in sibling order.
func (ms *MemoStore) ListByThread(threadID string) ([]*domain.Memo, error) {
	return ms.queryMemos(
		`SELECT `+memoColumns+` FROM memos WHERE thread_id = ? ORDER BY thread_order, id`, threadID)
}

// AppendToThread creates a follow-up memo in the anchor's thread. When the
// anchor has no thread yet, a thread id is minted and the anchor becomes
// the head at order 0.
func (ms *MemoStore) AppendToThread(anchorID int64, memo *domain.Memo) (int64, error) {
	var newID int64
	err := ms.store.WithTx(func(tx *sql.Tx) error {
		var threadID *string
		var bookID, folderID *int64
		err := tx.QueryRow("SELECT thread_id, book_id, folder_id FROM memos WHERE id = ?", anchorID).
			Scan(&threadID, &bookID, &folderID)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("memo not found: %d", anchorID)
			}
			return fmt.Errorf("failed to get memo: %w", err)
		}

		if threadID == nil {
			tid := uuid.NewString()
			threadID = &tid
			if _, err := tx.Exec(`
				UPDATE memos SET thread_id = ?, thread_order = 0,
					updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
				WHERE id = ?
			`, tid, anchorID); err != nil {
				return fmt.Errorf("failed to start thread: %w", err)
			}
		}

		var nextOrder int
		err = tx.QueryRow(
			"SELECT COALESCE(MAX(thread_order), -1) + 1 FROM memos WHERE thread_id = ?",
			*threadID).Scan(&nextOrder)
		if err != nil {
			return fmt.Errorf("failed to compute thread order: %w", err)
		}

		memoType := memo.Type
		if memoType == "" {
			memoType = domain.MemoTypeNormal
		}

		res, err := tx.Exec(`
			INSERT INTO memos (book_id, folder_id, title, content, tags, page_number,
			                   quote, type, thread_id, thread_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, bookID, folderID, memo.Title, memo.Content, memo.Tags, memo.PageNumber,
			memo.Quote, memoType, *threadID, nextOrder)
		if err != nil {
			return fmt.Errorf("failed to append to thread: %w", err)
		}
		newID, err = res.LastInsertId()
		return err
	})
	return newID, err
}

// RenumberThread rewrites thread_order for a thread to a dense 0..n-1
// sequence, keeping current order. Must be called after any structural
// change to a thread.
func RenumberThread(tx *sql.Tx, threadID string) error {
	rows, err := tx.Query(
		"SELECT id FROM memos WHERE thread_id = ? ORDER BY thread_order, id", threadID)
	if err != nil {
		return fmt.Errorf("failed to query thread: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan thread memo: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for order, id := range ids {
		if _, err := tx.Exec(
			"UPDATE memos SET thread_order = ? WHERE id = ? AND thread_order != ?",
			order, id, order); err != nil {
			return fmt.Errorf("failed to renumber thread memo %d: %w", id, err)
		}
	}
	return nil
}

func (ms *MemoStore) queryMemos(query string, args ...interface{}) ([]*domain.Memo, error) {
	rows, err := ms.store.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memos: %w", err)
	}
	defer rows.Close()

	var memos []*domain.Memo
	for rows.Next() {
		memo, err := scanMemo(rows)
		if err != nil {
			return nil, err
		}
		memos = append(memos, memo)
	}
	return memos, rows.Err()
}

func scanMemo(row rowScanner) (*domain.Memo, error) {
	memo := &domain.Memo{}
	var pinnedAt *string
	var createdAt, updatedAt string

	err := row.Scan(&memo.ID, &memo.BookID, &memo.FolderID, &memo.Title,
		&memo.Content, &memo.Tags, &memo.PageNumber, &memo.Quote, &memo.Type,
		&memo.ThreadID, &memo.ThreadOrder, &pinnedAt, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("memo not found")
		}
		return nil, fmt.Errorf("failed to get memo: %w", err)
	}

	if memo.PinnedAt, err = parseTimePtr(pinnedAt); err != nil {
		return nil, fmt.Errorf("failed to parse memo pinned_at: %w", err)
	}
	if memo.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse memo created_at: %w", err)
	}
	if memo.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse memo updated_at: %w", err)
	}
	return memo, nil
}
