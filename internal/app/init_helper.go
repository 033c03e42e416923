package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

// Bootstrap prepares a data directory: the database with an up-to-date
// schema and both file areas. Running it again is harmless.
func Bootstrap(ctx context.Context, dataDir, databaseName string) (int, error) {
	if dataDir == "" {
		return 0, fmt.Errorf("%w: data dir is required", ErrValidation)
	}
	if databaseName == "" {
		return 0, fmt.Errorf("%w: database name is required", ErrValidation)
	}

	dataDir = filepath.Clean(dataDir)
	for _, area := range []filestore.Area{filestore.AreaImages, filestore.AreaDocuments} {
		if err := os.MkdirAll(filepath.Join(dataDir, string(area)), 0o700); err != nil {
			return 0, fmt.Errorf("bootstrap: create %s dir: %w", area, err)
		}
	}

	store, err := storage.OpenAndInit(ctx, filepath.Join(dataDir, databaseName))
	if err != nil {
		return 0, fmt.Errorf("bootstrap: %w", err)
	}
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		_ = store.Close()
		return 0, fmt.Errorf("bootstrap: %w", err)
	}
	if err := store.Close(); err != nil {
		return 0, fmt.Errorf("bootstrap: close store: %w", err)
	}
	return version, nil
}
