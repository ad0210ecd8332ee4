// Package images provides recipe image validation and filesystem storage.
package images

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Storage manages image filesystem operations.
// Thread-safe for concurrent operations.
// Files are stored under {basePath}/{subdir}/ with UUID filenames so
// uploads never collide or overwrite each other.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a new Storage instance for recipe images.
// basePath should be the uploads directory (e.g., ~/Platebook/data/uploads).
// Images will be stored in {basePath}/recipe/.
func NewStorage(basePath string) (*Storage, error) {
	return NewStorageWithSubdir(basePath, "recipe")
}

// NewStorageWithSubdir creates a new Storage instance with a custom subdirectory.
// Example: NewStorageWithSubdir("/data/uploads", "avatars") -> /data/uploads/avatars/.
func NewStorageWithSubdir(basePath, subdir string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if subdir == "" {
		return nil, fmt.Errorf("subdirectory cannot be empty")
	}

	storagePath := filepath.Join(basePath, subdir)

	// Create directory if it doesn't exist.
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
	}

	return &Storage{
		basePath: storagePath,
	}, nil
}

// SaveNew stores image data under a freshly generated UUID filename,
// keeping the given extension (without leading dot). Returns the filename.
func (s *Storage) SaveNew(ext string, imgData []byte) (string, error) {
	if len(imgData) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return "", fmt.Errorf("extension cannot be empty")
	}

	filename := uuid.New().String() + "." + ext

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, filename)
	if err := os.WriteFile(path, imgData, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return filename, nil
}

// Get retrieves image data by filename.
func (s *Storage) Get(filename string) ([]byte, error) {
	path, err := s.safePath(filename)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image not found for %s: %w", filename, err)
		}
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return data, nil
}

// Exists checks if an image file exists.
func (s *Storage) Exists(filename string) bool {
	path, err := s.safePath(filename)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err = os.Stat(path)
	return err == nil
}

// Delete removes an image file. Missing files are not an error.
func (s *Storage) Delete(filename string) error {
	path, err := s.safePath(filename)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			// Already deleted, not an error.
			return nil
		}
		return fmt.Errorf("failed to delete image file: %w", err)
	}

	return nil
}

// Path returns the full filesystem path for a stored image.
func (s *Storage) Path(filename string) string {
	return filepath.Join(s.basePath, filename)
}

// safePath validates the filename and resolves it under the storage root.
// Rejects anything that could escape the directory.
func (s *Storage) safePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}
	if filepath.Base(filename) != filename || strings.Contains(filename, "..") {
		return "", fmt.Errorf("invalid filename: %s", filename)
	}
	return filepath.Join(s.basePath, filename), nil
}
