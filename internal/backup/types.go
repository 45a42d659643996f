// Package backup implements the backup payload codec: serializing a
// selected subgraph of the store into a versioned, self-describing JSON
// document, optionally wrapped in a password-derived encryption envelope,
// and validating/decrypting payloads on the way back in.
//
// The wire format is shared with the MemoSuite web apps: camelCase field
// names, ISO-8601 timestamps, and a legacy "logs" alias for memos.
package backup

import (
	"errors"
	"fmt"
	"time"
)

// FormatVersion is the payload schema version this codec emits.
const FormatVersion = 1

var (
	// ErrPasswordRequired is returned when the payload is encrypted and no
	// password was supplied.
	ErrPasswordRequired = errors.New("PASSWORD_REQUIRED")

	// ErrInvalidPassword is returned when decryption or authentication of
	// an encrypted payload fails.
	ErrInvalidPassword = errors.New("INVALID_PASSWORD")

	// ErrMalformedPayload is returned when the (decrypted) structure fails
	// schema validation. Nothing is written to the store in that case.
	ErrMalformedPayload = errors.New("MALFORMED_PAYLOAD")
)

// Payload is the plaintext backup document.
type Payload struct {
	Version   int            `json:"version"`
	Timestamp string         `json:"timestamp"`
	Books     []BookEntry    `json:"books"`
	Memos     []MemoEntry    `json:"memos"`
	Comments  []CommentEntry `json:"comments"`
	Folders   []FolderEntry  `json:"folders,omitempty"`
}

// Envelope is the encrypted backup document. EncryptedContent carries the
// whole Payload; the key-derivation salt is embedded in it so the envelope
// is self-contained.
type Envelope struct {
	Version          int    `json:"version"`
	IsEncrypted      bool   `json:"isEncrypted"`
	EncryptedContent string `json:"encryptedContent"`
}

// FolderEntry is a folder on the wire.
type FolderEntry struct {
	ID                      int64  `json:"id"`
	Name                    string `json:"name"`
	IsReadOnly              bool   `json:"isReadOnly,omitempty"`
	ExcludeFromGlobalSearch bool   `json:"excludeFromGlobalSearch,omitempty"`
	CreatedAt               string `json:"createdAt"`
	UpdatedAt               string `json:"updatedAt"`
}

// BookEntry is a book on the wire.
type BookEntry struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author,omitempty"`
	TotalPages    int    `json:"totalPages"`
	CurrentPage   int    `json:"currentPage,omitempty"`
	Status        string `json:"status"`
	StartDate     string `json:"startDate,omitempty"`
	CompletedDate string `json:"completedDate,omitempty"`
	FolderID      *int64 `json:"folderId,omitempty"`
	PinnedAt      string `json:"pinnedAt,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// MemoEntry is a memo on the wire.
type MemoEntry struct {
	ID          int64    `json:"id"`
	BookID      *int64   `json:"bookId,omitempty"`
	FolderID    *int64   `json:"folderId,omitempty"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags,omitempty"`
	PageNumber  *int     `json:"pageNumber,omitempty"`
	Quote       string   `json:"quote,omitempty"`
	Type        string   `json:"type,omitempty"`
	ThreadID    *string  `json:"threadId,omitempty"`
	ThreadOrder *int     `json:"threadOrder,omitempty"`
	PinnedAt    string   `json:"pinnedAt,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// CommentEntry is a comment on the wire. LegacyLogID is the pre-rename
// owner field some older exports still carry.
type CommentEntry struct {
	ID          int64  `json:"id"`
	MemoID      *int64 `json:"memoId,omitempty"`
	LegacyLogID *int64 `json:"logId,omitempty"`
	Content     string `json:"content"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// OwnerID returns the comment's parent memo id, honoring the legacy field
// name, or nil when neither is set.
func (c *CommentEntry) OwnerID() *int64 {
	if c.MemoID != nil {
		return c.MemoID
	}
	return c.LegacyLogID
}

// wireTimeLayouts lists the accepted timestamp formats. JS Date
// serialization produces millisecond RFC3339; our own exports use
// second-granularity RFC3339.
var wireTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
}

// ParseWireTime coerces a wire timestamp into a time.Time.
func ParseWireTime(s string) (time.Time, error) {
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseWireTimePtr coerces an optional wire timestamp; empty means absent.
func ParseWireTimePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseWireTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatWireTime formats a timestamp for the wire.
func FormatWireTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// FormatWireTimePtr formats an optional timestamp; nil becomes empty.
func FormatWireTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatWireTime(*t)
}
