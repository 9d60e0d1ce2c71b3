package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoRecord is returned by Storage.Read when no session entry exists.
var ErrNoRecord = errors.New("no stored session")

// Storage is the durable client-local key-value entry holding the serialized
// session projection. Presence of the entry is the authoritative
// "is authenticated" signal.
type Storage interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Clear() error
	Present() bool
}

// FileStorage persists the session projection as a single JSON file,
// owner-readable only, written atomically via rename.
type FileStorage struct {
	path string
}

// NewFileStorage creates a FileStorage rooted at path (e.g. ~/.wavecast/authinfo.json).
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session storage: %w", err)
	}
	return data, nil
}

func (f *FileStorage) Write(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".authinfo-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace session storage: %w", err)
	}
	return nil
}

func (f *FileStorage) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session storage: %w", err)
	}
	return nil
}

func (f *FileStorage) Present() bool {
	_, err := os.Stat(f.path)
	return err == nil
}
