// Package merge reconciles an incoming backup payload against the local
// store: per-entity identity matching, foreign-key remapping through
// id-translation tables, and a single-transaction apply.
package merge

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/memosuite/memoq/internal/store"
)

// DefaultTolerance is the timestamp window inside which two independently
// created records with equal content fields are considered the same
// entity. Exporter and importer share no primary-key space, so identity
// is inferred from content; titles repeat, but title plus near-identical
// creation time does not.
const DefaultTolerance = 5 * time.Second

// Matchers decides whether an incoming entity already exists locally.
// Queries run against the merge transaction; the memo matcher is bounded
// to rows that predate the current stage so two near-duplicate memos
// arriving in one payload stay distinct instead of the second matching
// the first one's fresh insert.
type Matchers struct {
	Tolerance time.Duration
}

// NewMatchers returns matchers with the default tolerance window.
func NewMatchers() Matchers {
	return Matchers{Tolerance: DefaultTolerance}
}

// Book matches on the exact (title, author) pair. Returns the local id
// and true on a hit.
func (m Matchers) Book(tx *sql.Tx, title, author string) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(
		"SELECT id FROM books WHERE title = ? AND author = ? ORDER BY id LIMIT 1",
		title, author).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to match book: %w", err)
	}
	return id, true, nil
}

// Memo matches on title equality plus createdAt within the tolerance
// window, considering only memos with id <= maxID (the rows that existed
// before this stage started inserting). First match wins when several
// local memos qualify.
func (m Matchers) Memo(tx *sql.Tx, title string, createdAt time.Time, maxID int64) (int64, bool, error) {
	rows, err := tx.Query(
		"SELECT id, created_at FROM memos WHERE title = ? AND id <= ? ORDER BY id",
		title, maxID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to match memo: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var created string
		if err := rows.Scan(&id, &created); err != nil {
			return 0, false, fmt.Errorf("failed to scan memo candidate: %w", err)
		}
		t, err := store.ParseTime(created)
		if err != nil {
			return 0, false, fmt.Errorf("failed to parse memo created_at: %w", err)
		}
		if withinTolerance(t, createdAt, m.Tolerance) {
			return id, true, nil
		}
	}
	return 0, false, rows.Err()
}

// Comment matches on (content, createdAt within tolerance) scoped to the
// already-resolved local parent memo.
func (m Matchers) Comment(tx *sql.Tx, memoID int64, content string, createdAt time.Time) (bool, error) {
	rows, err := tx.Query(
		"SELECT created_at FROM comments WHERE memo_id = ? AND content = ?",
		memoID, content)
	if err != nil {
		return false, fmt.Errorf("failed to match comment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var created string
		if err := rows.Scan(&created); err != nil {
			return false, fmt.Errorf("failed to scan comment candidate: %w", err)
		}
		t, err := store.ParseTime(created)
		if err != nil {
			return false, fmt.Errorf("failed to parse comment created_at: %w", err)
		}
		if withinTolerance(t, createdAt, m.Tolerance) {
			return true, nil
		}
	}
	return false, rows.Err()
}

func withinTolerance(a, b time.Time, tolerance time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < tolerance
}
