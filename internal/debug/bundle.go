// Package debug collects a JSON diagnostics bundle for a data directory.
package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type Bundle struct {
	GeneratedAt string         `json:"generated_at"`
	GOOS        string         `json:"goos"`
	GOARCH      string         `json:"goarch"`
	Version     map[string]any `json:"version,omitempty"`
	Storage     map[string]any `json:"storage,omitempty"`
	Checks      []Check        `json:"checks,omitempty"`
	Notes       []string       `json:"notes,omitempty"`
}

func NewBundle() Bundle {
	return Bundle{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339Nano),
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
	}
}

// Healthy reports whether every check passed.
func (b Bundle) Healthy() bool {
	for _, c := range b.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Collect runs the storage and file area checks. A nil store records a
// failed database check and skips the checks that need it.
func Collect(ctx context.Context, store *storage.Store, files *filestore.Store) Bundle {
	bundle := NewBundle()
	bundle.Storage = map[string]any{}

	if files != nil {
		bundle.Storage["files_root"] = files.Root()
	}

	if store == nil {
		bundle.Checks = append(bundle.Checks, Check{Name: "database", Message: "store not opened"})
	} else {
		bundle.Storage["database_path"] = store.Path()
		if info, err := os.Stat(store.Path()); err == nil {
			bundle.Storage["database_size"] = humanize.IBytes(uint64(info.Size()))
		}
		bundle.Checks = append(bundle.Checks, databaseCheck(ctx, store), schemaCheck(ctx, store))
	}

	if files == nil {
		bundle.Notes = append(bundle.Notes, "file store not configured")
		return bundle
	}

	for _, area := range []filestore.Area{filestore.AreaImages, filestore.AreaDocuments} {
		bundle.Checks = append(bundle.Checks, writableCheck(files, area))
	}

	if store == nil || !store.Ready() {
		bundle.Notes = append(bundle.Notes, "orphan counts skipped: database not initialized")
		return bundle
	}
	images, err := store.Users.ImagePaths(ctx)
	if err != nil {
		bundle.Checks = append(bundle.Checks, Check{Name: "orphans:" + string(filestore.AreaImages), Message: err.Error()})
	} else {
		bundle.Checks = append(bundle.Checks, orphanCheck(files, filestore.AreaImages, images))
	}
	documents, err := store.Documents.FilePaths(ctx)
	if err != nil {
		bundle.Checks = append(bundle.Checks, Check{Name: "orphans:" + string(filestore.AreaDocuments), Message: err.Error()})
	} else {
		bundle.Checks = append(bundle.Checks, orphanCheck(files, filestore.AreaDocuments, documents))
	}
	return bundle
}

func databaseCheck(ctx context.Context, store *storage.Store) Check {
	check := Check{Name: "database"}
	if err := store.DB().PingContext(ctx); err != nil {
		check.Message = err.Error()
		return check
	}
	check.OK = true
	check.Message = "open"
	if !store.Ready() {
		check.Message = "open, not initialized"
	}
	return check
}

func schemaCheck(ctx context.Context, store *storage.Store) Check {
	check := Check{Name: "schema_version"}
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		check.Message = err.Error()
		return check
	}
	want := storage.CurrentSchemaVersion()
	check.OK = version == want
	check.Message = fmt.Sprintf("version %d, expected %d", version, want)
	return check
}

func writableCheck(files *filestore.Store, area filestore.Area) Check {
	check := Check{Name: "writable:" + string(area)}
	dir := files.Dir(area)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		check.Message = err.Error()
		return check
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		check.Message = err.Error()
		return check
	}
	name := probe.Name()
	_ = probe.Close()
	if err := os.Remove(name); err != nil {
		check.Message = err.Error()
		return check
	}
	check.OK = true
	check.Message = dir
	return check
}

// orphanCheck counts unreferenced files. Orphans are reported, not treated
// as a failure; the sweep command removes them.
func orphanCheck(files *filestore.Store, area filestore.Area, referenced []string) Check {
	check := Check{Name: "orphans:" + string(area)}
	list, err := files.List(area)
	if err != nil {
		check.Message = err.Error()
		return check
	}

	keep := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		keep[filepath.Clean(p)] = struct{}{}
	}
	var (
		count int
		size  int64
	)
	for _, f := range list {
		if _, ok := keep[f.Path]; ok {
			continue
		}
		count++
		size += f.Size
	}
	check.OK = true
	check.Message = fmt.Sprintf("%d of %d files unreferenced (%s)", count, len(list), humanize.IBytes(uint64(size)))
	return check
}

func WriteBundle(outputPath string, bundle Bundle) error {
	if outputPath == "" {
		return fmt.Errorf("write debug bundle: output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o700); err != nil {
		return fmt.Errorf("write debug bundle: create output directory: %w", err)
	}

	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("write debug bundle: marshal json: %w", err)
	}
	if err := os.WriteFile(outputPath, payload, 0o600); err != nil {
		return fmt.Errorf("write debug bundle: %w", err)
	}
	return nil
}
