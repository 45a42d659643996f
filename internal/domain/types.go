package domain

import (
	"encoding/json"
	"time"
)

// BookStatus represents the reading status of a book
type BookStatus string

const (
	BookStatusReading   BookStatus = "reading"
	BookStatusCompleted BookStatus = "completed"
	BookStatusOnHold    BookStatus = "on_hold"
)

// MemoType represents the type of memo
type MemoType string

const (
	MemoTypeNormal   MemoType = "normal"
	MemoTypeProgress MemoType = "progress"
)

// Folder represents a folder grouping books and memos
type Folder struct {
	ID                      int64     `json:"id" db:"id"`
	Name                    string    `json:"name" db:"name"`
	IsReadOnly              bool      `json:"is_read_only" db:"is_read_only"`
	ExcludeFromGlobalSearch bool      `json:"exclude_from_global_search" db:"exclude_from_global_search"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// Book represents a book being read
type Book struct {
	ID            int64      `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Author        string     `json:"author" db:"author"`
	TotalPages    int        `json:"total_pages" db:"total_pages"`
	CurrentPage   int        `json:"current_page" db:"current_page"`
	Status        BookStatus `json:"status" db:"status"`
	StartDate     *time.Time `json:"start_date,omitempty" db:"start_date"`
	CompletedDate *time.Time `json:"completed_date,omitempty" db:"completed_date"`
	FolderID      *int64     `json:"folder_id,omitempty" db:"folder_id"`
	PinnedAt      *time.Time `json:"pinned_at,omitempty" db:"pinned_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Memo represents a note, optionally attached to a book and/or folder.
// Content is an opaque markdown payload; fenced sub-documents inside it
// (drawings, spreadsheets) are never interpreted by this engine.
type Memo struct {
	ID          int64      `json:"id" db:"id"`
	BookID      *int64     `json:"book_id,omitempty" db:"book_id"`
	FolderID    *int64     `json:"folder_id,omitempty" db:"folder_id"`
	Title       string     `json:"title" db:"title"`
	Content     string     `json:"content" db:"content"`
	Tags        *string    `json:"tags,omitempty" db:"tags"` // JSON array
	PageNumber  *int       `json:"page_number,omitempty" db:"page_number"`
	Quote       string     `json:"quote,omitempty" db:"quote"`
	Type        MemoType   `json:"type" db:"type"`
	ThreadID    *string    `json:"thread_id,omitempty" db:"thread_id"`
	ThreadOrder *int       `json:"thread_order,omitempty" db:"thread_order"`
	PinnedAt    *time.Time `json:"pinned_at,omitempty" db:"pinned_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Comment represents a comment on a memo. A comment without a resolvable
// parent memo is invalid and must never be persisted.
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	MemoID    int64     `json:"memo_id" db:"memo_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Draft represents an autosaved snapshot of in-progress edits. A draft
// with OriginalID set shadows an existing memo; without it, the draft
// shadows a not-yet-created memo scoped by BookID.
type Draft struct {
	ID           int64     `json:"id" db:"id"`
	OriginalID   *int64    `json:"original_id,omitempty" db:"original_id"`
	BookID       *int64    `json:"book_id,omitempty" db:"book_id"`
	Title        string    `json:"title" db:"title"`
	Content      string    `json:"content" db:"content"`
	Tags         *string   `json:"tags,omitempty" db:"tags"` // JSON array
	PageNumber   *int      `json:"page_number,omitempty" db:"page_number"`
	Quote        string    `json:"quote,omitempty" db:"quote"`
	CommentDraft *string   `json:"comment_draft,omitempty" db:"comment_draft"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// GetTags parses the tags JSON into a string slice
func (m *Memo) GetTags() ([]string, error) {
	return parseTags(m.Tags)
}

// SetTags sets the tags from a string slice
func (m *Memo) SetTags(tags []string) error {
	s, err := encodeTags(tags)
	if err != nil {
		return err
	}
	m.Tags = s
	return nil
}

// GetTags parses the tags JSON into a string slice
func (d *Draft) GetTags() ([]string, error) {
	return parseTags(d.Tags)
}

// SetTags sets the tags from a string slice
func (d *Draft) SetTags(tags []string) error {
	s, err := encodeTags(tags)
	if err != nil {
		return err
	}
	d.Tags = s
	return nil
}

func parseTags(raw *string) ([]string, error) {
	if raw == nil || *raw == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(*raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func encodeTags(tags []string) (*string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
