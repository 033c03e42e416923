package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

// DocumentService keeps document rows and their stored files consistent: a
// row never points at a file that was not copied successfully.
type DocumentService struct {
	docs   storage.DocumentRepository
	files  *filestore.Store
	logger *slog.Logger
}

func NewDocumentService(docs storage.DocumentRepository, files *filestore.Store, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DocumentService{docs: docs, files: files, logger: logger}
}

func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest) (*storage.Document, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: document name is required", ErrValidation)
	}
	if req.File.Path == "" {
		return nil, fmt.Errorf("%w: document file is required", ErrValidation)
	}

	path, err := s.files.SaveDocument(req.File)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	doc := &storage.Document{
		UserID:     req.UserID,
		Name:       req.Name,
		FilePath:   path,
		FileType:   s.fileType(path, req.File.Name),
		ExpiryDate: req.ExpiryDate,
		Comments:   req.Comments,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		s.discard(path)
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*storage.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, userID string) ([]storage.Document, error) {
	docs, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Search applies the documents screen filters to the user's documents,
// keeping newest-first order.
func (s *DocumentService) Search(ctx context.Context, req SearchDocumentsRequest) ([]storage.Document, error) {
	docs, err := s.List(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	fileType := strings.ToLower(strings.TrimSpace(req.FileType))
	out := make([]storage.Document, 0, len(docs))
	for _, doc := range docs {
		if !documentMatchesSearch(doc, req.Query) {
			continue
		}
		if fileType != "" && fileType != "all" && doc.FileType != fileType {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

// Update applies patch to the row. file_path and file_type are owned by the
// service and change only through newFile: the new copy is saved, the row is
// pointed at it, and only then is the old file removed. If the row update
// fails the new copy is discarded. The caller's patch is never modified.
func (s *DocumentService) Update(ctx context.Context, id string, patch storage.Patch, newFile *filestore.Source) (*UpdateDocumentResult, error) {
	if patch.Has("file_path") || patch.Has("file_type") {
		return nil, fmt.Errorf("%w: file_path and file_type change only by replacing the file", ErrValidation)
	}

	existing, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("update document %s: %w", id, storage.ErrNotFound)
	}

	var newPath string
	if newFile != nil {
		newPath, err = s.files.SaveDocument(*newFile)
		if err != nil {
			return nil, fmt.Errorf("update document: %w", err)
		}
		replaced := make(storage.Patch, len(patch), len(patch)+2)
		copy(replaced, patch)
		patch = replaced.Set("file_path", newPath).Set("file_type", s.fileType(newPath, newFile.Name))
	}

	if err := s.docs.Update(ctx, id, patch); err != nil {
		if newPath != "" {
			s.discard(newPath)
		}
		return nil, fmt.Errorf("update document: %w", err)
	}

	result := &UpdateDocumentResult{}
	if newPath != "" && existing.FilePath != newPath {
		// The row no longer points at the old file.
		if err := s.removeOwned(ctx, existing.FilePath, 0); err != nil {
			result.OldFileError = err
			s.logger.Warn("remove replaced document file", "path", existing.FilePath, "error", err)
		} else {
			result.OldFileDeleted = true
		}
	}

	updated, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload document: %w", err)
	}
	result.Document = updated
	return result, nil
}

// Delete removes the stored file, best-effort, then the row. A file another
// row still references is kept and reported as storage.ErrFileShared.
func (s *DocumentService) Delete(ctx context.Context, id string) (DeleteResult, error) {
	var result DeleteResult

	existing, err := s.docs.Get(ctx, id)
	if err != nil {
		return result, fmt.Errorf("delete document: %w", err)
	}
	if existing == nil {
		return result, fmt.Errorf("delete document %s: %w", id, storage.ErrNotFound)
	}

	// The row being deleted is still one of the references.
	if err := s.removeOwned(ctx, existing.FilePath, 1); err != nil {
		result.FileError = err
		s.logger.Warn("remove document file", "path", existing.FilePath, "error", err)
	} else {
		result.FileDeleted = true
	}

	if err := s.docs.Delete(ctx, id); err != nil {
		return result, fmt.Errorf("delete document: %w", err)
	}
	result.RowDeleted = true
	return result, nil
}

// removeOwned removes path when at most own rows reference it.
func (s *DocumentService) removeOwned(ctx context.Context, path string, own int) error {
	refs, err := s.docs.FileReferences(ctx, path)
	if err != nil {
		return err
	}
	if refs > own {
		return storage.ErrFileShared
	}
	return s.files.Remove(path)
}

func (s *DocumentService) fileType(path, originalName string) string {
	kind, err := filestore.DetectFileType(path)
	if err != nil {
		s.logger.Debug("detect file type", "path", path, "error", err)
		return filestore.FileTypeFromName(originalName)
	}
	return kind
}

func (s *DocumentService) discard(path string) {
	if err := s.files.Remove(path); err != nil {
		s.logger.Warn("discard document copy", "path", path, "error", err)
	}
}

func documentMatchesSearch(doc storage.Document, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(doc.Name), query) {
		return true
	}
	return doc.Comments != nil && strings.Contains(strings.ToLower(*doc.Comments), query)
}
