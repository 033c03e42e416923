package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

type SweepObserver interface {
	ObserveSweep(area string, removed int)
}

// Sweeper deletes stored files that no row references, for example copies
// left behind when the process died between the copy and the row write.
type Sweeper struct {
	users    storage.UserRepository
	docs     storage.DocumentRepository
	files    *filestore.Store
	grace    time.Duration
	logger   *slog.Logger
	observer SweepObserver
}

func NewSweeper(users storage.UserRepository, docs storage.DocumentRepository, files *filestore.Store, grace time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sweeper{users: users, docs: docs, files: files, grace: grace, logger: logger}
}

func (s *Sweeper) WithObserver(observer SweepObserver) *Sweeper {
	s.observer = observer
	return s
}

func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{RemovedImages: []string{}, RemovedDocuments: []string{}}

	images, err := s.users.ImagePaths(ctx)
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}
	documents, err := s.docs.FilePaths(ctx)
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}

	removedImages, imgErr := s.files.SweepOrphans(filestore.AreaImages, images, s.grace)
	report.RemovedImages = append(report.RemovedImages, removedImages...)
	removedDocs, docErr := s.files.SweepOrphans(filestore.AreaDocuments, documents, s.grace)
	report.RemovedDocuments = append(report.RemovedDocuments, removedDocs...)

	if s.observer != nil {
		s.observer.ObserveSweep(string(filestore.AreaImages), len(removedImages))
		s.observer.ObserveSweep(string(filestore.AreaDocuments), len(removedDocs))
	}
	s.logger.Info("sweep finished", "images", len(removedImages), "documents", len(removedDocs))

	if err := errors.Join(imgErr, docErr); err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}
	return report, nil
}
