package expense

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the interface for temporary file storage operations
type Storage interface {
	// Save saves a file and returns the handle used to retrieve it
	Save(ctx context.Context, filename string, data []byte) (string, error)

	// Get retrieves a file by handle
	Get(ctx context.Context, handle string) ([]byte, error)

	// Delete removes a file
	Delete(ctx context.Context, handle string) error
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save saves a file to local storage
func (l *LocalStorage) Save(_ context.Context, filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filepath.Base(filename), nil
}

// Get retrieves a file from local storage
func (l *LocalStorage) Get(_ context.Context, handle string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.Base(handle)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from local storage
func (l *LocalStorage) Delete(_ context.Context, handle string) error {
	if err := os.Remove(filepath.Join(l.basePath, filepath.Base(handle))); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
