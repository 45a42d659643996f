package store

import (
	"database/sql"
	"fmt"

	"github.com/memosuite/memoq/internal/domain"
)

// FolderStore handles folder persistence operations.
type FolderStore struct {
	store *Store
}

// Get retrieves a folder by id.
func (fs *FolderStore) Get(id int64) (*domain.Folder, error) {
	return scanFolder(fs.store.db.QueryRow(`
		SELECT id, name, is_read_only, exclude_from_global_search, created_at, updated_at
		FROM folders WHERE id = ?
	`, id))
}

// GetByName retrieves a folder by its unique name.
func (fs *FolderStore) GetByName(name string) (*domain.Folder, error) {
	return scanFolder(fs.store.db.QueryRow(`
		SELECT id, name, is_read_only, exclude_from_global_search, created_at, updated_at
		FROM folders WHERE name = ?
	`, name))
}

// Default returns the seeded default folder. Entities whose folder
// reference cannot be resolved fall back to it.
func (fs *FolderStore) Default() (*domain.Folder, error) {
	folder, err := fs.GetByName("Default")
	if err == nil {
		return folder, nil
	}
	// A renamed or missing seed still needs a stable fallback: use the
	// oldest folder on record.
	return scanFolder(fs.store.db.QueryRow(`
		SELECT id, name, is_read_only, exclude_from_global_search, created_at, updated_at
		FROM folders ORDER BY id LIMIT 1
	`))
}

// Add inserts a folder and returns its id.
func (fs *FolderStore) Add(folder *domain.Folder) (int64, error) {
	res, err := fs.store.db.Exec(`
		INSERT INTO folders (name, is_read_only, exclude_from_global_search)
		VALUES (?, ?, ?)
	`, folder.Name, folder.IsReadOnly, folder.ExcludeFromGlobalSearch)
	if err != nil {
		return 0, fmt.Errorf("failed to create folder: %w", err)
	}
	return res.LastInsertId()
}

// List returns all folders ordered by name.
func (fs *FolderStore) List() ([]*domain.Folder, error) {
	rows, err := fs.store.db.Query(`
		SELECT id, name, is_read_only, exclude_from_global_search, created_at, updated_at
		FROM folders ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []*domain.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFolder(row rowScanner) (*domain.Folder, error) {
	folder := &domain.Folder{}
	var createdAt, updatedAt string
	err := row.Scan(&folder.ID, &folder.Name, &folder.IsReadOnly,
		&folder.ExcludeFromGlobalSearch, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("folder not found")
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	if folder.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse folder created_at: %w", err)
	}
	if folder.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse folder updated_at: %w", err)
	}
	return folder, nil
}
