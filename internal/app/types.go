package app

import (
	"errors"

	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

var ErrValidation = errors.New("app: validation failed")

type CreateDocumentRequest struct {
	UserID     string
	Name       string
	ExpiryDate string
	Comments   *string
	File       filestore.Source
}

type SearchDocumentsRequest struct {
	UserID string
	// Query matches name or comments, case-insensitively.
	Query string
	// FileType is "image", "pdf", "other", or empty / "all" for any.
	FileType string
}

type UpdateDocumentResult struct {
	Document       *storage.Document
	OldFileDeleted bool
	OldFileError   error
}

// DeleteResult reports both halves of a document deletion. The file is
// removed first, best-effort; FileError is set when that failed.
type DeleteResult struct {
	RowDeleted  bool
	FileDeleted bool
	FileError   error
}

type ListBookingsRequest struct {
	UserID        string
	BookingStatus string
	PaymentStatus string
	// Year and Month filter on departure date; zero means any.
	Year  int
	Month int
}

type BookingMonth struct {
	Label    string
	Bookings []storage.Booking
}

type SweepReport struct {
	RemovedImages    []string
	RemovedDocuments []string
}
