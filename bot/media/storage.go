// Package media stores the temporary files exchanged with the generation
// API: downloaded voice clips and photos, synthesized speech.
package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultDir is used when no directory is configured.
const DefaultDir = "media"

// Config configures the local storage.
type Config struct {
	Dir string `yaml:"dir" envconfig:"MEDIA_DIR"`
}

// Storage keeps files in one local directory.
type Storage struct {
	dir string
}

// New creates the directory if needed.
func New(cfg Config) (*Storage, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("media: create %s: %w", dir, err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string {
	return s.dir
}

// Path returns a fresh file path for owner. ext includes the leading dot.
func (s *Storage) Path(owner int64, ext string) string {
	name := strconv.FormatInt(owner, 10) + "-" + uuid.NewString() + ext
	return filepath.Join(s.dir, name)
}

// Write stores data at path, which must lie inside the storage directory.
func (s *Storage) Write(path string, data []byte) error {
	if err := s.check(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("media: write: %w", err)
	}
	return nil
}

// Read returns the content of path.
func (s *Storage) Read(path string) ([]byte, error) {
	if err := s.check(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("media: read: %w", err)
	}
	return data, nil
}

// Delete removes path. A file that is already gone is not an error.
func (s *Storage) Delete(path string) error {
	if err := s.check(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("media: delete: %w", err)
	}
	return nil
}

// Save writes data to a fresh path for owner and returns that path.
func (s *Storage) Save(owner int64, ext string, data []byte) (string, error) {
	path := s.Path(owner, ext)
	if err := s.Write(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Storage) check(path string) error {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("media: %q is outside %s", path, s.dir)
	}
	return nil
}
