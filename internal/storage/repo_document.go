package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var documentUpdates = newUpdateSpec("documents",
	[]string{"name", "file_path", "file_type", "expiry_date", "comments"},
	map[string]string{
		"name":        "required",
		"file_path":   "required",
		"file_type":   "required",
		"expiry_date": "datetime=2006-01-02",
	},
)

const documentColumns = `id, user_id, name, file_path, file_type, expiry_date, comments, created_at`

type documentRepository struct {
	conn *conn
}

func (r *documentRepository) Create(ctx context.Context, doc *Document) error {
	if err := r.conn.checkReady(); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("create document: document is nil")
	}

	doc.ID = ensureID(doc.ID)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = nowUTC()
	}
	if err := validateEntity("create document", doc); err != nil {
		return err
	}

	_, err := r.conn.db.ExecContext(ctx, `
		INSERT INTO documents(`+documentColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.UserID, doc.Name, doc.FilePath, doc.FileType, doc.ExpiryDate, nullString(doc.Comments), fmtTime(doc.CreatedAt))
	r.conn.observe("document", "create", err)
	if err != nil {
		return fmt.Errorf("create document: %w", classifyError(err))
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*Document, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	row := r.conn.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	r.conn.observe("document", "get", ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListByUser returns the most recent document first.
func (r *documentRepository) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	rows, err := r.conn.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID)
	r.conn.observe("document", "list", err)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: iterate: %w", err)
	}
	return docs, nil
}

func (r *documentRepository) Update(ctx context.Context, id string, patch Patch) error {
	return documentUpdates.apply(ctx, r.conn, "document", id, patch)
}

// Delete removes the row only; the backing file is the caller's concern.
func (r *documentRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.conn, "document", "documents", id)
}

func (r *documentRepository) FilePaths(ctx context.Context) ([]string, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("list document files: %w", err)
	}
	return queryStrings(ctx, r.conn, "list document files", `SELECT file_path FROM documents`)
}

// FileReferences counts the user images and document files stored at path.
func (r *documentRepository) FileReferences(ctx context.Context, path string) (int, error) {
	return countFileReferences(ctx, r.conn, path)
}

func scanDocument(scanner rowScanner) (*Document, error) {
	var (
		doc       Document
		comments  sql.NullString
		createdAt string
	)
	if err := scanner.Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.FilePath, &doc.FileType, &doc.ExpiryDate, &comments, &createdAt); err != nil {
		return nil, err
	}
	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	doc.CreatedAt = parsed
	doc.Comments = stringPtr(comments)
	return &doc, nil
}
