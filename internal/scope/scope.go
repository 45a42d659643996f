// Package scope computes which entities belong to a requested backup:
// everything, one memo, or one memo plus its ordered thread siblings. The
// resulting id sets are exact; the codec serializes them without
// re-deriving scope.
package scope

import (
	"fmt"

	"github.com/memosuite/memoq/internal/store"
)

// Kind identifies the requested backup scope.
type Kind string

const (
	KindFull   Kind = "full"
	KindSingle Kind = "single"
	KindThread Kind = "thread"
)

// Selection is the exact entity-id set a backup covers. MemoIDs preserve
// thread sibling order for thread scope.
type Selection struct {
	Kind           Kind
	BookIDs        []int64
	MemoIDs        []int64
	CommentIDs     []int64
	IncludeFolders bool
}

// Info is a human-facing description of what a scope would export, used by
// the sync-trigger UI to announce the transfer.
type Info struct {
	Type  Kind   `json:"type"`
	Count int    `json:"count"`
	Label string `json:"label,omitempty"`
}

// Selector derives backup selections from the store.
type Selector struct {
	store *store.Store
}

// NewSelector creates a Selector over the given store.
func NewSelector(st *store.Store) *Selector {
	return &Selector{store: st}
}

// Select computes the selection for a scope. anchorID is ignored for
// KindFull and names the anchor memo otherwise.
func (s *Selector) Select(kind Kind, anchorID int64) (*Selection, error) {
	switch kind {
	case KindFull:
		return s.selectFull()
	case KindSingle:
		return s.selectMemos(KindSingle, anchorID)
	case KindThread:
		return s.selectMemos(KindThread, anchorID)
	default:
		return nil, fmt.Errorf("unknown scope kind: %s", kind)
	}
}

// Describe reports what exporting around anchorID would send. A nil
// anchor means a full export.
func (s *Selector) Describe(anchorID *int64) (*Info, error) {
	if anchorID == nil {
		var count int
		if err := s.store.DB().QueryRow("SELECT COUNT(*) FROM memos").Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count memos: %w", err)
		}
		return &Info{Type: KindFull, Count: count, Label: "All Data"}, nil
	}

	sel, err := s.selectMemos(KindThread, *anchorID)
	if err != nil {
		return nil, err
	}
	memo, err := s.store.Memos.Get(*anchorID)
	if err != nil {
		return nil, err
	}
	return &Info{Type: sel.Kind, Count: len(sel.MemoIDs), Label: memo.Title}, nil
}

func (s *Selector) selectFull() (*Selection, error) {
	sel := &Selection{Kind: KindFull, IncludeFolders: true}

	for _, q := range []struct {
		query string
		dst   *[]int64
	}{
		{"SELECT id FROM books ORDER BY id", &sel.BookIDs},
		{"SELECT id FROM memos ORDER BY id", &sel.MemoIDs},
		{"SELECT id FROM comments ORDER BY id", &sel.CommentIDs},
	} {
		rows, err := s.store.DB().Query(q.query)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate entities: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan id: %w", err)
			}
			*q.dst = append(*q.dst, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return sel, nil
}

// selectMemos handles single and thread scope. A thread request around a
// memo that is not the head of its thread degrades to single: a non-head
// export must still be importable as a head-of-one.
func (s *Selector) selectMemos(kind Kind, anchorID int64) (*Selection, error) {
	anchor, err := s.store.Memos.Get(anchorID)
	if err != nil {
		return nil, err
	}

	memoIDs := []int64{anchorID}
	resolved := KindSingle

	if kind == KindThread && anchor.ThreadID != nil {
		siblings, err := s.store.Memos.ListByThread(*anchor.ThreadID)
		if err != nil {
			return nil, err
		}
		if len(siblings) > 1 && siblings[0].ID == anchorID {
			memoIDs = memoIDs[:0]
			for _, m := range siblings {
				memoIDs = append(memoIDs, m.ID)
			}
			resolved = KindThread
		}
	}

	sel := &Selection{Kind: resolved, MemoIDs: memoIDs}

	// Books referenced by the selected memos ride along for context.
	seenBooks := make(map[int64]bool)
	for _, id := range memoIDs {
		memo := anchor
		if id != anchorID {
			if memo, err = s.store.Memos.Get(id); err != nil {
				return nil, err
			}
		}
		if memo.BookID != nil && !seenBooks[*memo.BookID] {
			seenBooks[*memo.BookID] = true
			sel.BookIDs = append(sel.BookIDs, *memo.BookID)
		}

		comments, err := s.store.Comments.ListByMemo(id)
		if err != nil {
			return nil, err
		}
		for _, c := range comments {
			sel.CommentIDs = append(sel.CommentIDs, c.ID)
		}
	}

	return sel, nil
}
