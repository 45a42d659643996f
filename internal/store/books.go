package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/memosuite/memoq/internal/domain"
)

// BookStore handles book persistence operations.
type BookStore struct {
	store *Store
}

const bookColumns = `id, title, author, total_pages, current_page, status,
	start_date, completed_date, folder_id, pinned_at, created_at, updated_at`

// Get retrieves a book by id.
func (bs *BookStore) Get(id int64) (*domain.Book, error) {
	return scanBook(bs.store.db.QueryRow(
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
}

// Add inserts a book and returns its id. Timestamps default to now when
// zero; explicit values (e.g. from an import) are preserved.
func (bs *BookStore) Add(book *domain.Book) (int64, error) {
	query := `
		INSERT INTO books (title, author, total_pages, current_page, status,
		                   start_date, completed_date, folder_id, pinned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		book.Title, book.Author, book.TotalPages, book.CurrentPage, book.Status,
		formatTimePtr(book.StartDate), formatTimePtr(book.CompletedDate),
		book.FolderID, formatTimePtr(book.PinnedAt),
	}
	if !book.CreatedAt.IsZero() {
		query = `
			INSERT INTO books (title, author, total_pages, current_page, status,
			                   start_date, completed_date, folder_id, pinned_at,
			                   created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		args = append(args, FormatTime(book.CreatedAt), FormatTime(book.UpdatedAt))
	}

	res, err := bs.store.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to create book: %w", err)
	}
	return res.LastInsertId()
}

// UpdateFields updates the given columns on a book and bumps updated_at.
func (bs *BookStore) UpdateFields(id int64, fields map[string]interface{}) error {
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

	query := fmt.Sprintf("UPDATE books SET %s WHERE id = ?", strings.Join(setClauses, ", "))
	res, err := bs.store.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("book not found: %d", id)
	}
	return nil
}

// Delete removes a book and cascades an explicit delete to its memos and
// their comments, all in one transaction.
func (bs *BookStore) Delete(id int64) error {
	return bs.store.WithTx(func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT id FROM memos WHERE book_id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to query book memos: %w", err)
		}
		var memoIDs []int64
		for rows.Next() {
			var memoID int64
			if err := rows.Scan(&memoID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan memo id: %w", err)
			}
			memoIDs = append(memoIDs, memoID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, memoID := range memoIDs {
			if _, err := tx.Exec("DELETE FROM comments WHERE memo_id = ?", memoID); err != nil {
				return fmt.Errorf("failed to delete comments for memo %d: %w", memoID, err)
			}
			if _, err := tx.Exec("DELETE FROM memos WHERE id = ?", memoID); err != nil {
				return fmt.Errorf("failed to delete memo %d: %w", memoID, err)
			}
		}

		if _, err := tx.Exec("DELETE FROM books WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete book: %w", err)
		}
		return nil
	})
}

// List returns all books ordered by creation time, newest first.
func (bs *BookStore) List() ([]*domain.Book, error) {
	rows, err := bs.store.db.Query(
		`SELECT ` + bookColumns + ` FROM books ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func scanBook(row rowScanner) (*domain.Book, error) {
	book := &domain.Book{}
	var startDate, completedDate, pinnedAt *string
	var createdAt, updatedAt string

	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.TotalPages,
		&book.CurrentPage, &book.Status, &startDate, &completedDate,
		&book.FolderID, &pinnedAt, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("book not found")
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if book.StartDate, err = parseTimePtr(startDate); err != nil {
		return nil, fmt.Errorf("failed to parse book start_date: %w", err)
	}
	if book.CompletedDate, err = parseTimePtr(completedDate); err != nil {
		return nil, fmt.Errorf("failed to parse book completed_date: %w", err)
	}
	if book.PinnedAt, err = parseTimePtr(pinnedAt); err != nil {
		return nil, fmt.Errorf("failed to parse book pinned_at: %w", err)
	}
	if book.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse book created_at: %w", err)
	}
	if book.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse book updated_at: %w", err)
	}
	return book, nil
}
