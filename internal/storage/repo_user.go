package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var userUpdates = newUpdateSpec("users",
	[]string{"email", "password", "name", "country_code", "phone_number", "address", "gender", "birthday", "image"},
	map[string]string{
		"email":    "required,email",
		"password": "required",
		"name":     "required",
		"birthday": "datetime=2006-01-02",
	},
)

const userColumns = `id, email, password, name, country_code, phone_number, address, gender, birthday, image, created_at`

type userRepository struct {
	conn *conn
}

// Create inserts the sign-up column set; profile fields start empty.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	if err := r.conn.checkReady(); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("create user: user is nil")
	}

	user.ID = ensureID(user.ID)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = nowUTC()
	}
	if err := validateEntity("create user", user); err != nil {
		return err
	}

	_, err := r.conn.db.ExecContext(ctx, `
		INSERT INTO users(id, email, password, name, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.Password, user.Name, fmtTime(user.CreatedAt))
	r.conn.observe("user", "create", err)
	if err != nil {
		return fmt.Errorf("create user: %w", classifyError(err))
	}
	return nil
}

// GetByEmail matches email ignoring ASCII case, so rows written before emails
// were lowercased still resolve. An exact match wins over a case-folded one.
// It returns nil without error when no user has the email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email", `email = ? COLLATE NOCASE ORDER BY email = ? DESC LIMIT 1`, email, email)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getBy(ctx, "id", `id = ?`, id)
}

func (r *userRepository) getBy(ctx context.Context, column, where string, args ...any) (*User, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	row := r.conn.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	user, err := scanUser(row)
	r.conn.observe("user", "get", ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, id string, patch Patch) error {
	return userUpdates.apply(ctx, r.conn, "user", id, patch)
}

func (r *userRepository) ImagePaths(ctx context.Context) ([]string, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("list user images: %w", err)
	}
	return queryStrings(ctx, r.conn, "list user images", `SELECT image FROM users WHERE image IS NOT NULL AND image != ''`)
}

// FileReferences counts the user images and document files stored at path.
func (r *userRepository) FileReferences(ctx context.Context, path string) (int, error) {
	return countFileReferences(ctx, r.conn, path)
}

func scanUser(scanner rowScanner) (*User, error) {
	var (
		user        User
		countryCode sql.NullString
		phoneNumber sql.NullString
		address     sql.NullString
		gender      sql.NullString
		birthday    sql.NullString
		image       sql.NullString
		createdAt   string
	)
	if err := scanner.Scan(&user.ID, &user.Email, &user.Password, &user.Name, &countryCode, &phoneNumber,
		&address, &gender, &birthday, &image, &createdAt); err != nil {
		return nil, err
	}

	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = parsed
	user.CountryCode = stringPtr(countryCode)
	user.PhoneNumber = stringPtr(phoneNumber)
	user.Address = stringPtr(address)
	user.Gender = stringPtr(gender)
	user.Birthday = stringPtr(birthday)
	user.Image = stringPtr(image)
	return &user, nil
}

func queryStrings(ctx context.Context, c *conn, op, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
