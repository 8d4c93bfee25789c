package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mfenderov/docsync/internal/storage"
	"github.com/mfenderov/docsync/pkg/models"
)

// Objects is the part of the object store the manifest backend needs.
type Objects interface {
	GetObject(ctx context.Context, name string) ([]byte, error)
	PutObject(ctx context.Context, name string, data []byte, contentType string) error
	ListObjects(ctx context.Context, prefix, suffix string) ([]string, error)
}

// ObjectStore keeps each manifest as a JSON object in a bucket.
type ObjectStore struct {
	objects Objects
	prefix  string
}

// NewObjectStore stores manifests under prefix in objects.
func NewObjectStore(objects Objects, prefix string) *ObjectStore {
	return &ObjectStore{objects: objects, prefix: prefix}
}

func (s *ObjectStore) Get(ctx context.Context, key string) (models.Manifest, error) {
	data, err := s.objects.GetObject(ctx, s.prefix+key)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("manifest not found, starting empty", "key", key)
		return models.Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest %s: %w", key, err)
	}
	return decode(key, data)
}

func (s *ObjectStore) Put(ctx context.Context, key string, m models.Manifest) error {
	data, err := encode(m)
	if err != nil {
		return &PersistError{Key: key, Err: err}
	}
	if err := s.objects.PutObject(ctx, s.prefix+key, data, "application/json"); err != nil {
		return &PersistError{Key: key, Err: err}
	}
	return nil
}

func (s *ObjectStore) List(ctx context.Context) ([]string, error) {
	names, err := s.objects.ListObjects(ctx, s.prefix, ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	return names, nil
}
