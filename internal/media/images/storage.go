// Package images provides dish image downloading, processing, and storage.
package images

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage manages image filesystem operations.
// Thread-safe for concurrent operations. Images are stored content-addressed
// so the same bytes downloaded twice occupy one file.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a Storage rooted at basePath. Images are stored in
// {basePath}/dishes/.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	storagePath := filepath.Join(basePath, "dishes")
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dishes directory: %w", err)
	}

	return &Storage{basePath: storagePath}, nil
}

// ContentID derives the storage ID for image bytes.
func ContentID(imgData []byte) string {
	sum := sha256.Sum256(imgData)
	return hex.EncodeToString(sum[:16])
}

// Save stores image data under its content ID and returns that ID.
// Saving bytes that already exist is a no-op.
func (s *Storage) Save(imgData []byte) (string, error) {
	if len(imgData) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}

	id := ContentID(imgData)

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	if err := os.WriteFile(path, imgData, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return id, nil
}

// Get retrieves image data by ID.
func (s *Storage) Get(id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Exists reports whether an image is stored under the given ID.
func (s *Storage) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Delete removes an image by ID. Deleting a missing image is a no-op.
func (s *Storage) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// Path returns the filesystem path for an image ID.
func (s *Storage) Path(id string) string {
	return filepath.Join(s.basePath, id+".jpg")
}
