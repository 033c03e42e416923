package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MarkerStore persists the id of the signed-in user across restarts.
type MarkerStore interface {
	Load() (string, error)
	Save(userID string) error
	Clear() error
}

// FileMarker keeps the marker in a single 0600 file.
type FileMarker struct {
	path string
}

func NewFileMarker(path string) *FileMarker {
	return &FileMarker{path: path}
}

func (m *FileMarker) Path() string {
	return m.path
}

// Load returns "" when no marker exists.
func (m *FileMarker) Load() (string, error) {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read session marker: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (m *FileMarker) Save(userID string) error {
	if userID == "" {
		return fmt.Errorf("write session marker: empty user id")
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("write session marker: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".session-*")
	if err != nil {
		return fmt.Errorf("write session marker: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(userID); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write session marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write session marker: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write session marker: %w", err)
	}
	return nil
}

func (m *FileMarker) Clear() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session marker: %w", err)
	}
	return nil
}
