// Package draft implements timer-driven autosave of in-progress edits and
// the reconciliation of those snapshots against canonical records on load.
// Each edit session owns its own snapshot row and cancellation handle, so
// concurrent sessions (two windows editing different memos) never clobber
// each other's autosave id.
package draft

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/memosuite/memoq/internal/domain"
	"github.com/memosuite/memoq/internal/store"
)

const (
	// DefaultInterval is the autosave tick period.
	DefaultInterval = 7 * time.Second

	// MaxDrafts caps draft rows process-wide, not per key; the oldest
	// rows beyond the cap are purged after every snapshot write.
	MaxDrafts = 20
)

// State names a session's position in the autosave lifecycle.
type State string

const (
	StateClean       State = "clean"
	StateDirty       State = "dirty"
	StateSnapshotted State = "snapshotted"
	StateSaved       State = "saved"
	StateAbandoned   State = "abandoned"
	StateRecovered   State = "recovered"
)

// Key identifies a logical edit target: a memo being edited
// (OriginalID set) or a not-yet-created memo scoped by book.
type Key struct {
	OriginalID *int64
	BookID     *int64
}

// Fields is the editable buffer a draft snapshots. CommentDraft carries
// one in-progress comment edit riding along with the memo edit.
type Fields struct {
	Title        string
	Content      string
	Tags         []string
	PageNumber   *int
	Quote        string
	CommentDraft string
}

// Trivial reports whether the buffer has nothing worth snapshotting.
func (f Fields) Trivial() bool {
	return strings.TrimSpace(f.Title) == "" &&
		strings.TrimSpace(f.Content) == "" &&
		f.CommentDraft == ""
}

// Equal compares two buffers field by field.
func (f Fields) Equal(other Fields) bool {
	if f.Title != other.Title || f.Content != other.Content ||
		f.Quote != other.Quote || f.CommentDraft != other.CommentDraft {
		return false
	}
	if (f.PageNumber == nil) != (other.PageNumber == nil) {
		return false
	}
	if f.PageNumber != nil && *f.PageNumber != *other.PageNumber {
		return false
	}
	if len(f.Tags) != len(other.Tags) {
		return false
	}
	for i := range f.Tags {
		if f.Tags[i] != other.Tags[i] {
			return false
		}
	}
	return true
}

// Guard is the merge-in-progress check the autosave loop must respect:
// no snapshot writes while a merge transaction may be touching the
// tables.
type Guard interface {
	InProgress() bool
}

// Reconciler creates edit sessions and recovers drafts on startup.
type Reconciler struct {
	store    *store.Store
	guard    Guard
	interval time.Duration
}

// NewReconciler creates a Reconciler. guard may be nil when no merge
// engine runs in the process.
func NewReconciler(st *store.Store, guard Guard) *Reconciler {
	return &Reconciler{store: st, guard: guard, interval: DefaultInterval}
}

// SetInterval overrides the autosave tick period.
func (r *Reconciler) SetInterval(d time.Duration) {
	r.interval = d
}

// Interval returns the autosave tick period.
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}

// Session starts a new edit session for a key. The baseline is the
// last-saved state of the target; Update calls are compared against it.
type Session struct {
	rec *Reconciler
	key Key

	mu         sync.Mutex
	state      State
	baseline   Fields
	buffer     Fields
	snapshotID int64
	tookOver   bool
	cancel     context.CancelFunc
}

// Session creates an edit session with the given baseline.
func (r *Reconciler) Session(key Key, baseline Fields) *Session {
	return &Session{
		rec:      r,
		key:      key,
		state:    StateClean,
		baseline: baseline,
		buffer:   baseline,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update replaces the edit buffer. The session turns dirty when the
// buffer differs from the baseline and falls back to clean when the edit
// is undone.
func (s *Session) Update(fields Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = fields
	switch s.state {
	case StateClean, StateDirty, StateSnapshotted, StateRecovered:
		if fields.Equal(s.baseline) {
			if s.state == StateDirty {
				s.state = StateClean
			}
		} else {
			s.state = StateDirty
		}
	}
}

// Run drives the autosave loop until ctx is cancelled or Stop is called.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	interval := s.rec.interval
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Snapshot failures are retried on the next tick; the loop
			// never gives up while the session is live.
			_ = s.SnapshotNow()
		}
	}
}

// Stop cancels a running autosave loop.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SnapshotNow writes the buffer to the draft table if the session is
// dirty and the buffer is non-trivial. The first write of a session
// replaces any drafts left over for the same key; later writes update the
// same row in place via the remembered id.
func (s *Session) SnapshotNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDirty {
		return nil
	}
	if s.buffer.Trivial() {
		return nil
	}
	if s.rec.guard != nil && s.rec.guard.InProgress() {
		// A merge owns the store right now; try again next tick.
		return nil
	}

	drafts := s.rec.store.Drafts

	if s.snapshotID == 0 && !s.tookOver && s.key.OriginalID != nil {
		// Adopt-or-replace: earlier sessions for this memo are superseded.
		if err := drafts.DeleteForKey(s.key.OriginalID, nil); err != nil {
			return err
		}
		s.tookOver = true
	}

	row := &domain.Draft{
		ID:         s.snapshotID,
		OriginalID: s.key.OriginalID,
		BookID:     s.key.BookID,
		Title:      s.buffer.Title,
		Content:    s.buffer.Content,
		PageNumber: s.buffer.PageNumber,
		Quote:      s.buffer.Quote,
	}
	if err := row.SetTags(s.buffer.Tags); err != nil {
		return err
	}
	if s.buffer.CommentDraft != "" {
		cd := s.buffer.CommentDraft
		row.CommentDraft = &cd
	}

	id, err := drafts.Put(row)
	if err != nil {
		return fmt.Errorf("failed to snapshot draft: %w", err)
	}
	s.snapshotID = id
	s.state = StateSnapshotted

	if _, err := drafts.EnforceCap(MaxDrafts); err != nil {
		return err
	}
	return nil
}

// Saved marks the edit committed: all drafts for the key are deleted and
// the committed buffer becomes the new baseline.
func (s *Session) Saved() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rec.store.Drafts.DeleteForKey(s.key.OriginalID, s.key.BookID); err != nil {
		return err
	}
	s.baseline = s.buffer
	s.snapshotID = 0
	s.state = StateSaved
	return nil
}

// Abandoned discards the edit: drafts for the key are deleted without
// being applied anywhere.
func (s *Session) Abandoned() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rec.store.Drafts.DeleteForKey(s.key.OriginalID, s.key.BookID); err != nil {
		return err
	}
	s.snapshotID = 0
	s.state = StateAbandoned
	return nil
}

// Resume marks a session recovered from a draft: the recovered fields
// become the edit-buffer baseline and the session keeps updating the
// recovered row in place.
func (s *Session) Resume(rec *Recovery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = rec.Fields
	s.buffer = rec.Fields
	s.snapshotID = rec.Draft.ID
	s.tookOver = true
	s.state = StateRecovered
}
