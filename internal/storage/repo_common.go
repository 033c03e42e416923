package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is fixed width so that lexical order of stored values matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var validate = validator.New(validator.WithRequiredStructEnabled())

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime also accepts rows written by older app versions, which used
// millisecond precision.
func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func validateEntity(op string, entity any) error {
	if err := validate.Struct(entity); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return fmt.Errorf("%s: %w: %s", op, ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%s: %w: %v", op, ErrValidation, err)
	}
	return nil
}

// ConstraintError is a classified SQLite constraint failure.
type ConstraintError struct {
	Kind string
	Err  error
}

const (
	ConstraintUnique     = "unique"
	ConstraintForeignKey = "foreign key"
	ConstraintNotNull    = "not null"
	ConstraintCheck      = "check"
	ConstraintOther      = "constraint"
)

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s constraint failed: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

func (e *ConstraintError) Is(target error) bool {
	switch target {
	case ErrConstraintViolation:
		return true
	case ErrUniqueViolation:
		return e.Kind == ConstraintUnique
	case ErrForeignKeyViolation:
		return e.Kind == ConstraintForeignKey
	}
	return false
}

// classifyError turns SQLite constraint failures into *ConstraintError and
// leaves everything else untouched.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	code := sqliteErr.Code()
	if code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}

	kind := ConstraintOther
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		kind = ConstraintUnique
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		kind = ConstraintForeignKey
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		kind = ConstraintNotNull
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		kind = ConstraintCheck
	default:
		// Primary code only: fall back to the engine's message.
		kind = constraintKindFromMessage(sqliteErr.Error())
	}
	return &ConstraintError{Kind: kind, Err: err}
}

func constraintKindFromMessage(msg string) string {
	msg = strings.ToUpper(msg)
	switch {
	case strings.Contains(msg, "UNIQUE CONSTRAINT"):
		return ConstraintUnique
	case strings.Contains(msg, "FOREIGN KEY CONSTRAINT"):
		return ConstraintForeignKey
	case strings.Contains(msg, "NOT NULL CONSTRAINT"):
		return ConstraintNotNull
	case strings.Contains(msg, "CHECK CONSTRAINT"):
		return ConstraintCheck
	default:
		return ConstraintOther
	}
}

// countFileReferences counts rows of either file-owning table that point at
// path.
func countFileReferences(ctx context.Context, c *conn, path string) (int, error) {
	const op = "count file references"
	if err := c.checkReady(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var count int
	err := c.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM documents WHERE file_path = ?)
		     + (SELECT COUNT(*) FROM users WHERE image = ?)
	`, path, path).Scan(&count)
	c.observe("file", "references", err)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
