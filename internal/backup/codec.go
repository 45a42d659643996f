package backup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/memosuite/memoq/internal/domain"
	"github.com/memosuite/memoq/internal/scope"
	"github.com/memosuite/memoq/internal/store"
)

// appPrefix names exported files: memoq-backup-<date>.json.
const appPrefix = "memoq"

// Codec reads selections out of the store and turns them into payloads,
// and validates/decrypts payloads coming back. It never writes to the
// store.
type Codec struct {
	store *store.Store
}

// NewCodec creates a Codec over the given store.
func NewCodec(st *store.Store) *Codec {
	return &Codec{store: st}
}

// Encode serializes the entities named by sel into a payload.
func (c *Codec) Encode(sel *scope.Selection) (*Payload, error) {
	payload := &Payload{
		Version:   FormatVersion,
		Timestamp: FormatWireTime(time.Now()),
		Books:     []BookEntry{},
		Memos:     []MemoEntry{},
		Comments:  []CommentEntry{},
	}

	if sel.IncludeFolders {
		folders, err := c.store.Folders.List()
		if err != nil {
			return nil, err
		}
		for _, f := range folders {
			payload.Folders = append(payload.Folders, folderToEntry(f))
		}
	}

	for _, id := range sel.BookIDs {
		book, err := c.store.Books.Get(id)
		if err != nil {
			return nil, err
		}
		payload.Books = append(payload.Books, bookToEntry(book))
	}

	for _, id := range sel.MemoIDs {
		memo, err := c.store.Memos.Get(id)
		if err != nil {
			return nil, err
		}
		entry, err := memoToEntry(memo)
		if err != nil {
			return nil, err
		}
		payload.Memos = append(payload.Memos, entry)
	}

	for _, id := range sel.CommentIDs {
		comment, err := c.store.Comments.Get(id)
		if err != nil {
			return nil, err
		}
		payload.Comments = append(payload.Comments, commentToEntry(comment))
	}

	return payload, nil
}

// Marshal renders a payload as pretty-printed JSON. With a non-empty
// password the payload is replaced by an encrypted envelope.
func Marshal(payload *Payload, password string) ([]byte, error) {
	if password == "" {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		return data, nil
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	encrypted, err := EncryptContent(plaintext, password)
	if err != nil {
		return nil, err
	}

	envelope := &Envelope{
		Version:          FormatVersion,
		IsEncrypted:      true,
		EncryptedContent: encrypted,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// filePayload is the decode-side shape. Raw messages for the entity
// arrays let validation distinguish a missing array from an empty one.
type filePayload struct {
	Version          int             `json:"version"`
	Timestamp        string          `json:"timestamp"`
	IsEncrypted      bool            `json:"isEncrypted"`
	EncryptedContent string          `json:"encryptedContent"`
	Folders          []FolderEntry   `json:"folders"`
	Books            json.RawMessage `json:"books"`
	Memos            json.RawMessage `json:"memos"`
	Logs             json.RawMessage `json:"logs"` // legacy alias for memos
	Comments         []CommentEntry  `json:"comments"`
}

// Decode parses and validates a backup document, decrypting it first when
// it is an envelope. It returns ErrPasswordRequired, ErrInvalidPassword,
// or ErrMalformedPayload per the error contract; any of these means the
// store was never touched.
func Decode(data []byte, password string) (*Payload, error) {
	var file filePayload
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if file.IsEncrypted && file.EncryptedContent != "" {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		plaintext, err := DecryptContent(file.EncryptedContent, password)
		if err != nil {
			return nil, err
		}
		file = filePayload{}
		if err := json.Unmarshal(plaintext, &file); err != nil {
			// Authenticated decryption succeeded, so this is corrupt
			// content rather than a wrong password.
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}

	if file.Books == nil && file.Memos == nil && file.Logs == nil {
		return nil, fmt.Errorf("%w: no books or memos arrays", ErrMalformedPayload)
	}

	payload := &Payload{
		Version:   file.Version,
		Timestamp: file.Timestamp,
		Folders:   file.Folders,
		Comments:  file.Comments,
	}
	if file.Books != nil {
		if err := json.Unmarshal(file.Books, &payload.Books); err != nil {
			return nil, fmt.Errorf("%w: invalid books: %v", ErrMalformedPayload, err)
		}
	}
	memoSource := file.Memos
	if memoSource == nil {
		memoSource = file.Logs
	}
	if memoSource != nil {
		if err := json.Unmarshal(memoSource, &payload.Memos); err != nil {
			return nil, fmt.Errorf("%w: invalid memos: %v", ErrMalformedPayload, err)
		}
	}

	if payload.Books == nil {
		payload.Books = []BookEntry{}
	}
	if payload.Memos == nil {
		payload.Memos = []MemoEntry{}
	}
	if payload.Comments == nil {
		payload.Comments = []CommentEntry{}
	}

	return payload, nil
}

// FileName derives the export file name convention for the given day:
// memoq-backup-<date>.json for full exports, memoq-partial-<date>.json
// for scoped ones. EnsureJSONExt handles user-supplied names.
func FileName(partial bool, t time.Time) string {
	kind := "backup"
	if partial {
		kind = "partial"
	}
	return fmt.Sprintf("%s-%s-%s.json", appPrefix, kind, t.UTC().Format("2006-01-02"))
}

// EnsureJSONExt appends .json to a file name when it is missing.
func EnsureJSONExt(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		return name
	}
	return name + ".json"
}

func folderToEntry(f *domain.Folder) FolderEntry {
	return FolderEntry{
		ID:                      f.ID,
		Name:                    f.Name,
		IsReadOnly:              f.IsReadOnly,
		ExcludeFromGlobalSearch: f.ExcludeFromGlobalSearch,
		CreatedAt:               FormatWireTime(f.CreatedAt),
		UpdatedAt:               FormatWireTime(f.UpdatedAt),
	}
}

func bookToEntry(b *domain.Book) BookEntry {
	return BookEntry{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		TotalPages:    b.TotalPages,
		CurrentPage:   b.CurrentPage,
		Status:        string(b.Status),
		StartDate:     FormatWireTimePtr(b.StartDate),
		CompletedDate: FormatWireTimePtr(b.CompletedDate),
		FolderID:      b.FolderID,
		PinnedAt:      FormatWireTimePtr(b.PinnedAt),
		CreatedAt:     FormatWireTime(b.CreatedAt),
		UpdatedAt:     FormatWireTime(b.UpdatedAt),
	}
}

func memoToEntry(m *domain.Memo) (MemoEntry, error) {
	tags, err := m.GetTags()
	if err != nil {
		return MemoEntry{}, fmt.Errorf("failed to parse memo %d tags: %w", m.ID, err)
	}
	return MemoEntry{
		ID:          m.ID,
		BookID:      m.BookID,
		FolderID:    m.FolderID,
		Title:       m.Title,
		Content:     m.Content,
		Tags:        tags,
		PageNumber:  m.PageNumber,
		Quote:       m.Quote,
		Type:        string(m.Type),
		ThreadID:    m.ThreadID,
		ThreadOrder: m.ThreadOrder,
		PinnedAt:    FormatWireTimePtr(m.PinnedAt),
		CreatedAt:   FormatWireTime(m.CreatedAt),
		UpdatedAt:   FormatWireTime(m.UpdatedAt),
	}, nil
}

func commentToEntry(c *domain.Comment) CommentEntry {
	memoID := c.MemoID
	return CommentEntry{
		ID:        c.ID,
		MemoID:    &memoID,
		Content:   c.Content,
		CreatedAt: FormatWireTime(c.CreatedAt),
		UpdatedAt: FormatWireTime(c.UpdatedAt),
	}
}
