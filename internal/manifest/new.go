package manifest

import (
	"context"
	"fmt"

	"github.com/mfenderov/docsync/internal/storage"
)

// Backend names.
const (
	BackendS3   = "s3"
	BackendFile = "file"
)

// Config selects and configures a manifest backend.
type Config struct {
	Backend string
	Dir     string // file backend directory
	Prefix  string // object name prefix for the s3 backend
	Storage storage.Config
}

// New builds the configured Store. The s3 backend creates its bucket if
// it does not exist.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendS3, "":
		client, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return NewObjectStore(client, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown manifest backend %q", cfg.Backend)
	}
}
