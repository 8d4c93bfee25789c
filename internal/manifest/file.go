package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mfenderov/docsync/pkg/models"
)

// FileStore keeps each manifest as a JSON file in a directory.
type FileStore struct {
	dir string
}

// NewFileStore stores manifests in dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create manifest dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid manifest key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *FileStore) Get(_ context.Context, key string) (models.Manifest, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest %s: %w", key, err)
	}
	return decode(key, data)
}

// Put writes to a temp file in the same directory and renames it over
// the previous manifest.
func (s *FileStore) Put(_ context.Context, key string, m models.Manifest) error {
	p, err := s.path(key)
	if err != nil {
		return &PersistError{Key: key, Err: err}
	}
	data, err := encode(m)
	if err != nil {
		return &PersistError{Key: key, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*")
	if err != nil {
		return &PersistError{Key: key, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &PersistError{Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistError{Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return &PersistError{Key: key, Err: err}
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}
