package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore is the durable key-value backing store for database snapshots.
// Load returns (nil, nil) when no blob exists under the key.
type BlobStore interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

// FileBlobStore keeps one file per key under a data directory. Writes go
// through a temp file and rename so a crash mid-persist never leaves a
// truncated snapshot behind.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore creates the data directory if needed.
func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileBlobStore{dir: dir}, nil
}

func (b *FileBlobStore) path(key string) string {
	return filepath.Join(b.dir, key)
}

func (b *FileBlobStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

func (b *FileBlobStore) Save(key string, data []byte) error {
	tmp := b.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp, b.path(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace blob %s: %w", key, err)
	}
	return nil
}

func (b *FileBlobStore) Delete(key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
