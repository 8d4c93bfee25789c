// Package manifest persists the per-scheme record of what is indexed.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mfenderov/docsync/pkg/models"
)

// Store loads and replaces manifests by key.
type Store interface {
	// Get returns the manifest stored under key, or an empty manifest if
	// none exists.
	Get(ctx context.Context, key string) (models.Manifest, error)
	// Put replaces the manifest stored under key.
	Put(ctx context.Context, key string, m models.Manifest) error
	// List returns the stored manifest keys.
	List(ctx context.Context) ([]string, error)
}

// PersistError reports a manifest that could not be written.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist manifest %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

func encode(m models.Manifest) ([]byte, error) {
	if m == nil {
		m = models.Manifest{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

func decode(key string, data []byte) (models.Manifest, error) {
	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", key, err)
	}
	if m == nil {
		m = models.Manifest{}
	}
	return m, nil
}
