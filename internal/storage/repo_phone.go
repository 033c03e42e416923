package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type phoneRepository struct {
	conn *conn
}

func (r *phoneRepository) Add(ctx context.Context, phone *PhoneNumber) error {
	if err := r.conn.checkReady(); err != nil {
		return fmt.Errorf("add phone: %w", err)
	}
	if phone == nil {
		return fmt.Errorf("add phone: phone is nil")
	}

	phone.ID = ensureID(phone.ID)
	if err := validateEntity("add phone", phone); err != nil {
		return err
	}

	_, err := r.conn.db.ExecContext(ctx, `
		INSERT INTO user_phones(id, user_id, country_code, phone_number, phone_type)
		VALUES(?, ?, ?, ?, ?)
	`, phone.ID, phone.UserID, phone.CountryCode, phone.PhoneNumber, string(phone.PhoneType))
	r.conn.observe("phone", "create", err)
	if err != nil {
		return fmt.Errorf("add phone: %w", classifyError(err))
	}
	return nil
}

func (r *phoneRepository) Get(ctx context.Context, id string) (*PhoneNumber, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("get phone: %w", err)
	}

	var phone PhoneNumber
	err := r.conn.db.QueryRowContext(ctx, `
		SELECT id, user_id, country_code, phone_number, phone_type
		FROM user_phones
		WHERE id = ?
	`, id).Scan(&phone.ID, &phone.UserID, &phone.CountryCode, &phone.PhoneNumber, &phone.PhoneType)
	r.conn.observe("phone", "get", ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get phone: %w", err)
	}
	return &phone, nil
}

// ListByUser orders Primary first, then Secondary, then Other.
func (r *phoneRepository) ListByUser(ctx context.Context, userID string) ([]PhoneNumber, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("list phones: %w", err)
	}

	rows, err := r.conn.db.QueryContext(ctx, `
		SELECT id, user_id, country_code, phone_number, phone_type
		FROM user_phones
		WHERE user_id = ?
		ORDER BY CASE phone_type
			WHEN 'Primary' THEN 1
			WHEN 'Secondary' THEN 2
			ELSE 3
		END, rowid ASC
	`, userID)
	r.conn.observe("phone", "list", err)
	if err != nil {
		return nil, fmt.Errorf("list phones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	phones := []PhoneNumber{}
	for rows.Next() {
		var phone PhoneNumber
		if err := rows.Scan(&phone.ID, &phone.UserID, &phone.CountryCode, &phone.PhoneNumber, &phone.PhoneType); err != nil {
			return nil, fmt.Errorf("list phones: scan row: %w", err)
		}
		phones = append(phones, phone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list phones: iterate: %w", err)
	}
	return phones, nil
}

func (r *phoneRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.conn, "phone", "user_phones", id)
}

func deleteByID(ctx context.Context, c *conn, entity, table, id string) error {
	op := "delete " + entity
	if err := c.checkReady(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result, err := c.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	c.observe(entity, "delete", err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classifyError(err))
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
