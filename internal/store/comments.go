package store

import (
	"database/sql"
	"fmt"

	"github.com/memosuite/memoq/internal/domain"
)

// CommentStore handles comment persistence operations.
type CommentStore struct {
	store *Store
}

// Get retrieves a comment by id.
func (cs *CommentStore) Get(id int64) (*domain.Comment, error) {
	return scanComment(cs.store.db.QueryRow(`
		SELECT id, memo_id, content, created_at, updated_at
		FROM comments WHERE id = ?
	`, id))
}

// Add inserts a comment and returns its id. The parent memo must exist;
// the foreign key rejects orphans.
func (cs *CommentStore) Add(comment *domain.Comment) (int64, error) {
	query := `INSERT INTO comments (memo_id, content) VALUES (?, ?)`
	args := []interface{}{comment.MemoID, comment.Content}
	if !comment.CreatedAt.IsZero() {
		query = `INSERT INTO comments (memo_id, content, created_at, updated_at) VALUES (?, ?, ?, ?)`
		args = append(args, FormatTime(comment.CreatedAt), FormatTime(comment.UpdatedAt))
	}

	res, err := cs.store.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to create comment: %w", err)
	}
	return res.LastInsertId()
}

// Update replaces a comment's content and bumps updated_at.
func (cs *CommentStore) Update(id int64, content string) error {
	res, err := cs.store.db.Exec(`
		UPDATE comments SET content = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
		WHERE id = ?
	`, content, id)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("comment not found: %d", id)
	}
	return nil
}

// Delete removes a comment.
func (cs *CommentStore) Delete(id int64) error {
	res, err := cs.store.db.Exec("DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("comment not found: %d", id)
	}
	return nil
}

// ListByMemo returns the comments on a memo, oldest first.
func (cs *CommentStore) ListByMemo(memoID int64) ([]*domain.Comment, error) {
	rows, err := cs.store.db.Query(`
		SELECT id, memo_id, content, created_at, updated_at
		FROM comments WHERE memo_id = ? ORDER BY created_at, id
	`, memoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	comment := &domain.Comment{}
	var createdAt, updatedAt string
	err := row.Scan(&comment.ID, &comment.MemoID, &comment.Content, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("comment not found")
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if comment.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse comment created_at: %w", err)
	}
	if comment.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse comment updated_at: %w", err)
	}
	return comment, nil
}
