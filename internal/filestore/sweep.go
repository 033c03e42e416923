package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// List returns the regular files of an area sorted by path. A missing area
// directory yields an empty list.
func (s *Store) List(area Area) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.Dir(area))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("list %s: %w: %v", area, ErrFileOperationFailed, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(s.Dir(area), entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// SweepOrphans removes files of an area that no row references and that were
// last modified more than olderThan ago. It returns the removed paths.
func (s *Store) SweepOrphans(area Area, referenced []string, olderThan time.Duration) ([]string, error) {
	files, err := s.List(area)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		keep[filepath.Clean(stripFileScheme(p))] = struct{}{}
	}

	cutoff := s.now().Add(-olderThan)
	removed := []string{}
	var errs []error
	for _, f := range files {
		if _, ok := keep[f.Path]; ok {
			continue
		}
		if f.ModTime.After(cutoff) {
			continue
		}
		if err := s.Remove(f.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, f.Path)
	}
	if len(removed) > 0 {
		s.logger.Info("orphan files removed", "area", string(area), "count", len(removed))
	}
	return removed, errors.Join(errs...)
}
