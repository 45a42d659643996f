// Package store provides the persistence layer over the SQLite database,
// exposing per-table stores and a transaction primitive that the merge
// engine and draft reconciler build on.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/memosuite/memoq/internal/db"
)

// Store is the root store that provides access to the entity tables.
type Store struct {
	db *db.DB

	Folders  *FolderStore
	Books    *BookStore
	Memos    *MemoStore
	Comments *CommentStore
	Drafts   *DraftStore
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	s := &Store{db: database}
	s.Folders = &FolderStore{store: s}
	s.Books = &BookStore{store: s}
	s.Memos = &MemoStore{store: s}
	s.Comments = &CommentStore{store: s}
	s.Drafts = &DraftStore{store: s}
	return s
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// WithTx executes fn within a transaction. If fn returns nil, the
// transaction is committed; otherwise it is rolled back.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// timeLayout is the canonical storage timestamp format (RFC3339, UTC,
// second granularity — matches the strftime defaults in the schema).
const timeLayout = "2006-01-02T15:04:05Z"

// FormatTime formats a timestamp for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a storage timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
