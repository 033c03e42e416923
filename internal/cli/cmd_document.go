package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/typicalmohit/tinku-ji/internal/app"
	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

func newDocumentCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Stored documents of the signed-in user",
	}
	cmd.AddCommand(
		newDocumentAddCommand(deps),
		newDocumentListCommand(deps),
		newDocumentUpdateCommand(deps),
		newDocumentDeleteCommand(deps),
	)
	return cmd
}

func newDocumentAddCommand(deps commandDeps) *cobra.Command {
	var (
		name     string
		expiry   string
		comments string
		file     string
	)

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Copy a file into the documents area and record it",
		Example: "  tinkuji document add --name 'Permit' --expiry 2025-12-31 --file ./permit.pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("document add does not accept positional arguments")
			}
			if strings.TrimSpace(file) == "" {
				return usageErrorf("document add requires --file")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				userID, err := env.currentUserID()
				if err != nil {
					return err
				}
				doc, err := env.documents.Create(ctx, app.CreateDocumentRequest{
					UserID:     userID,
					Name:       name,
					ExpiryDate: expiry,
					Comments:   stringPtr(comments),
					File:       filestore.Source{Path: file, Name: filepath.Base(file)},
				})
				if err != nil {
					return err
				}
				return printDocument(deps, doc)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Document name")
	cmd.Flags().StringVar(&expiry, "expiry", "", "Expiry date YYYY-MM-DD")
	cmd.Flags().StringVar(&comments, "comments", "", "Comments")
	cmd.Flags().StringVar(&file, "file", "", "File to store")
	return cmd
}

func newDocumentListCommand(deps commandDeps) *cobra.Command {
	var req app.SearchDocumentsRequest

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List documents, newest first",
		Example: "  tinkuji document list --query permit --type pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("document list does not accept positional arguments")
			}
			switch strings.ToLower(req.FileType) {
			case "", "all", filestore.FileTypeImage, filestore.FileTypePDF, filestore.FileTypeOther:
			default:
				return usageErrorf("--type must be all, image, pdf or other")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				userID, err := env.currentUserID()
				if err != nil {
					return err
				}
				req.UserID = userID
				docs, err := env.documents.Search(ctx, req)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					out := make([]documentOutput, 0, len(docs))
					for i := range docs {
						out = append(out, toDocumentOutput(&docs[i]))
					}
					return printJSON(deps.out, out)
				}
				if deps.globals.Quiet {
					return nil
				}
				for i := range docs {
					if err := printDocumentLine(deps, &docs[i]); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Query, "query", "", "Match name or comments")
	cmd.Flags().StringVar(&req.FileType, "type", "all", "all, image, pdf or other")
	return cmd
}

func newDocumentUpdateCommand(deps commandDeps) *cobra.Command {
	var (
		sets []string
		file string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update document columns or replace its file",
		Example: "  tinkuji document update 3f2c... --set expiry_date=2026-12-31\n" +
			"  tinkuji document update 3f2c... --file ./permit-renewed.pdf",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("document update requires exactly one document id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseSetFlags(sets)
			if err != nil {
				return err
			}
			var source *filestore.Source
			if strings.TrimSpace(file) != "" {
				source = &filestore.Source{Path: file, Name: filepath.Base(file)}
			}
			if len(patch) == 0 && source == nil {
				return usageErrorf("document update requires --set or --file")
			}

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				if _, err := ownedDocument(ctx, env, args[0]); err != nil {
					return err
				}
				result, err := env.documents.Update(ctx, args[0], patch, source)
				if err != nil {
					return err
				}
				if result.OldFileError != nil && !deps.globals.JSON {
					if _, err := fmt.Fprintf(deps.errOut, "warning: previous file not removed: %v\n", result.OldFileError); err != nil {
						return err
					}
				}
				return printDocument(deps, result.Document)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Document column=value (repeatable; value null clears)")
	cmd.Flags().StringVar(&file, "file", "", "Replacement file")
	return cmd
}

func newDocumentDeleteCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its stored file",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("document delete requires exactly one document id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				if _, err := ownedDocument(ctx, env, args[0]); err != nil {
					return err
				}
				result, err := env.documents.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				payload := map[string]any{
					"deleted":      args[0],
					"row_deleted":  result.RowDeleted,
					"file_deleted": result.FileDeleted,
				}
				if result.FileError != nil {
					payload["file_error"] = result.FileError.Error()
				}
				if deps.globals.JSON {
					return printJSON(deps.out, payload)
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "deleted document %s (file removed: %t)\n", args[0], result.FileDeleted)
				return err
			})
		},
	}
}

func ownedDocument(ctx context.Context, env *runtimeEnv, id string) (*storage.Document, error) {
	userID, err := env.currentUserID()
	if err != nil {
		return nil, err
	}
	doc, err := env.documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.UserID != userID {
		return nil, fmt.Errorf("document %s: %w", id, storage.ErrNotFound)
	}
	return doc, nil
}

type documentOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FilePath   string `json:"file_path"`
	FileType   string `json:"file_type"`
	ExpiryDate string `json:"expiry_date"`
	Comments   string `json:"comments,omitempty"`
	Size       string `json:"size,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toDocumentOutput(doc *storage.Document) documentOutput {
	out := documentOutput{
		ID:         doc.ID,
		Name:       doc.Name,
		FilePath:   doc.FilePath,
		FileType:   doc.FileType,
		ExpiryDate: doc.ExpiryDate,
		Comments:   derefString(doc.Comments),
		CreatedAt:  doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if info, err := os.Stat(doc.FilePath); err == nil {
		out.Size = humanize.IBytes(uint64(info.Size()))
	}
	return out
}

func printDocument(deps commandDeps, doc *storage.Document) error {
	if deps.globals.JSON {
		return printJSON(deps.out, toDocumentOutput(doc))
	}
	if deps.globals.Quiet {
		return nil
	}
	return printDocumentLine(deps, doc)
}

func printDocumentLine(deps commandDeps, doc *storage.Document) error {
	out := toDocumentOutput(doc)
	size := out.Size
	if size == "" {
		size = "missing"
	}
	_, err := fmt.Fprintf(deps.out, "%s [%s] expires=%s size=%s added %s id=%s\n",
		doc.Name, doc.FileType, doc.ExpiryDate, size, humanize.Time(doc.CreatedAt), doc.ID)
	return err
}
