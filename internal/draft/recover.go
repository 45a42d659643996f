package draft

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/memosuite/memoq/internal/domain"
)

// Recovery is a draft offered back to the user. Recovered content is
// never applied silently; the caller shows Diff and lets the user choose.
type Recovery struct {
	Draft  *domain.Draft
	Fields Fields
	// Diff is a unified diff from the canonical memo content to the
	// draft content. Empty for drafts of never-created memos.
	Diff string
}

// Recover looks up the latest draft for a key and decides whether it is
// worth surfacing. A draft whose content matches the canonical memo is
// stale and deleted on the spot. Returns nil when there is nothing to
// recover.
func (r *Reconciler) Recover(key Key) (*Recovery, error) {
	row, err := r.store.Drafts.LatestForKey(key.OriginalID, key.BookID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return r.assess(row)
}

// SweepOnStartup scans the draft table after a crash or restart. For
// every key only the latest draft survives; older rows and drafts whose
// parent memo has since been deleted are pruned. Surviving drafts that
// still differ from their canonical memo are returned for the UI to
// offer.
func (r *Reconciler) SweepOnStartup() ([]*Recovery, error) {
	rows, err := r.store.Drafts.List()
	if err != nil {
		return nil, err
	}

	// List is oldest-first, so later rows supersede earlier ones.
	latest := make(map[flatKey]*domain.Draft)
	order := make([]flatKey, 0, len(rows))
	for _, row := range rows {
		key := keyOf(row)
		if old, ok := latest[key]; ok {
			if err := r.store.Drafts.Delete(old.ID); err != nil {
				return nil, err
			}
		} else {
			order = append(order, key)
		}
		latest[key] = row
	}

	var recoveries []*Recovery
	for _, key := range order {
		rec, err := r.assess(latest[key])
		if err != nil {
			return nil, err
		}
		if rec != nil {
			recoveries = append(recoveries, rec)
		}
	}
	return recoveries, nil
}

// assess turns a draft row into a Recovery, or deletes it when it is
// stale (matches canonical content, references a deleted memo, or holds
// nothing worth keeping).
func (r *Reconciler) assess(row *domain.Draft) (*Recovery, error) {
	fields, err := fieldsOf(row)
	if err != nil {
		return nil, err
	}

	if row.OriginalID == nil {
		// Draft of a memo that was never finalized.
		if fields.Trivial() {
			return nil, r.store.Drafts.Delete(row.ID)
		}
		return &Recovery{Draft: row, Fields: fields}, nil
	}

	memo, err := r.store.Memos.Get(*row.OriginalID)
	if err != nil {
		// Parent deleted since the snapshot; nothing to restore onto.
		return nil, r.store.Drafts.Delete(row.ID)
	}
	if memo.Content == row.Content && memo.Title == row.Title && row.CommentDraft == nil {
		// Edit was committed through another path; the draft is stale.
		return nil, r.store.Drafts.Delete(row.ID)
	}

	diff, err := unifiedDiff(memo.Content, row.Content)
	if err != nil {
		return nil, err
	}
	return &Recovery{Draft: row, Fields: fields, Diff: diff}, nil
}

// flatKey is the comparable form of a draft's target. Key holds pointer
// fields, and a map keyed on pointers would compare identity rather than
// the ids they point at, so every row would land in its own bucket.
type flatKey struct {
	originalID  int64
	hasOriginal bool
	bookID      int64
	hasBook     bool
}

func keyOf(row *domain.Draft) flatKey {
	var key flatKey
	if row.OriginalID != nil {
		key.originalID = *row.OriginalID
		key.hasOriginal = true
	} else if row.BookID != nil {
		key.bookID = *row.BookID
		key.hasBook = true
	}
	return key
}

func fieldsOf(row *domain.Draft) (Fields, error) {
	tags, err := row.GetTags()
	if err != nil {
		return Fields{}, fmt.Errorf("failed to decode draft tags: %w", err)
	}
	fields := Fields{
		Title:      row.Title,
		Content:    row.Content,
		Tags:       tags,
		PageNumber: row.PageNumber,
		Quote:      row.Quote,
	}
	if row.CommentDraft != nil {
		fields.CommentDraft = *row.CommentDraft
	}
	return fields, nil
}

func unifiedDiff(canonical, draft string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(canonical),
		B:        difflib.SplitLines(draft),
		FromFile: "memo",
		ToFile:   "draft",
		Context:  3,
	})
}
