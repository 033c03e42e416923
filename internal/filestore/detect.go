package filestore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	FileTypeImage = "image"
	FileTypePDF   = "pdf"
	FileTypeOther = "other"
)

// DetectFileType sniffs the content of path and maps it onto the document
// categories. Unreadable or empty content falls back to the extension.
func DetectFileType(path string) (string, error) {
	path = stripFileScheme(path)
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect file type: %w: %v", ErrFileOperationFailed, err)
	}

	switch {
	case strings.HasPrefix(mtype.String(), "image/"):
		return FileTypeImage, nil
	case mtype.Is("application/pdf"):
		return FileTypePDF, nil
	case mtype.Is("text/plain") || mtype.Is("application/octet-stream"):
		return FileTypeFromName(path), nil
	}
	return FileTypeOther, nil
}

// FileTypeFromName classifies by extension only.
func FileTypeFromName(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "jpg", "jpeg", "png", "gif", "webp", "heic":
		return FileTypeImage
	case "pdf":
		return FileTypePDF
	}
	return FileTypeOther
}
