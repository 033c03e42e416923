// Package filestore keeps copies of user-picked files (profile images and
// documents) inside the application data directory.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

var (
	ErrFileAlreadyExists   = errors.New("filestore: file already exists")
	ErrFileTooLarge        = errors.New("filestore: file too large")
	ErrFileOperationFailed = errors.New("filestore: file operation failed")
	ErrOutsideRoot         = errors.New("filestore: path outside data directory")
	ErrInvalidFileName     = errors.New("filestore: invalid file name")
)

// DefaultMaxDocumentBytes matches the limit enforced by the document picker.
const DefaultMaxDocumentBytes int64 = 5 * 1024 * 1024

type Area string

const (
	AreaImages    Area = "files"
	AreaDocuments Area = "documents"
)

// Source is a file handed over by an external picker.
type Source struct {
	Path string
	Name string
}

// Observer receives one call per file operation. It must not block.
type Observer interface {
	ObserveFileOp(op string, err error)
}

type Option func(*Store)

func WithMaxDocumentBytes(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxDocumentBytes = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type Store struct {
	root             string
	maxDocumentBytes int64
	logger           *slog.Logger
	observer         Observer
	now              func() time.Time
}

func New(root string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("new filestore: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("new filestore: resolve root: %w", err)
	}

	s := &Store{
		root:             abs,
		maxDocumentBytes: DefaultMaxDocumentBytes,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) MaxDocumentBytes() int64 {
	return s.maxDocumentBytes
}

func (s *Store) Dir(area Area) string {
	return filepath.Join(s.root, string(area))
}

// SaveFile copies sourceURI into the area under fileName and returns the
// absolute destination path. An existing destination is never overwritten.
func (s *Store) SaveFile(area Area, sourceURI, fileName string) (path string, err error) {
	defer func() { s.observe("save", err) }()

	if fileName == "" || fileName != filepath.Base(fileName) || fileName == "." || fileName == ".." {
		return "", fmt.Errorf("save file %q: %w", fileName, ErrInvalidFileName)
	}
	sourcePath := stripFileScheme(sourceURI)
	if sourcePath == "" {
		return "", fmt.Errorf("save file: empty source")
	}

	dir := s.Dir(area)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("save file: create dir: %w: %v", ErrFileOperationFailed, err)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("save file: open source: %w: %v", ErrFileOperationFailed, err)
	}
	defer func() { _ = src.Close() }()

	dest := filepath.Join(dir, fileName)
	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("save file %s: %w", fileName, ErrFileAlreadyExists)
		}
		return "", fmt.Errorf("save file: create destination: %w: %v", ErrFileOperationFailed, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("save file: copy: %w: %v", ErrFileOperationFailed, err)
	}
	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("save file: sync: %w: %v", ErrFileOperationFailed, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("save file: close: %w: %v", ErrFileOperationFailed, err)
	}

	s.logger.Debug("file saved", "area", string(area), "path", dest)
	return dest, nil
}

// SaveDocument enforces the document size limit before copying.
func (s *Store) SaveDocument(src Source) (string, error) {
	sourcePath := stripFileScheme(src.Path)
	info, err := os.Stat(sourcePath)
	if err != nil {
		s.observe("save", err)
		return "", fmt.Errorf("save document: stat source: %w: %v", ErrFileOperationFailed, err)
	}
	if info.Size() > s.maxDocumentBytes {
		err := fmt.Errorf("%w: %s exceeds the %s limit", ErrFileTooLarge,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(s.maxDocumentBytes)))
		s.observe("save", err)
		return "", err
	}

	name := src.Name
	if name == "" {
		name = filepath.Base(sourcePath)
	}
	return s.SaveFile(AreaDocuments, sourcePath, DocumentFileName(name, s.now()))
}

func (s *Store) SaveProfileImage(userID, sourceURI string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("save profile image: empty user id")
	}
	name := userID + "_" + strconv.FormatInt(s.now().UnixMilli(), 10) + ".jpg"
	return s.SaveFile(AreaImages, sourceURI, name)
}

// DocumentFileName returns "<unixMillis>_<uuid>.<ext>", ext taken from the
// original name.
func DocumentFileName(original string, t time.Time) string {
	name := strconv.FormatInt(t.UnixMilli(), 10) + "_" + uuid.NewString()
	if ext := strings.TrimPrefix(filepath.Ext(original), "."); ext != "" {
		name += "." + strings.ToLower(ext)
	}
	return name
}

// Remove deletes a stored file. A missing file counts as removed.
func (s *Store) Remove(path string) (err error) {
	defer func() { s.observe("remove", err) }()

	target, err := s.within(path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove %s: %w: %v", filepath.Base(target), ErrFileOperationFailed, err)
	}
	s.logger.Debug("file removed", "path", target)
	return nil
}

func (s *Store) Exists(path string) bool {
	info, err := os.Stat(stripFileScheme(path))
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) within(path string) (string, error) {
	cleaned := filepath.Clean(stripFileScheme(path))
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	rel, err := filepath.Rel(s.root, cleaned)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return cleaned, nil
}

func (s *Store) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveFileOp(op, err)
	}
}

func stripFileScheme(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
