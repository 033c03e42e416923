package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/typicalmohit/tinku-ji/internal/storage"
)

// ProfileUpdate carries the edited profile columns. NewImage, when set, is
// the source URI of a replacement profile picture.
type ProfileUpdate struct {
	Patch    storage.Patch
	NewImage *string
}

// Overview holds the counts shown on the profile screen.
type Overview struct {
	Phones    int
	Bookings  int
	Documents int
}

// UpdateProfile saves the new image, writes the patch and refreshes the
// cached profile. The image column changes only through NewImage. The new
// image is removed again when the row update fails. The previous image is
// removed only after a successful update and only when no other row uses it.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*storage.User, error) {
	id, err := m.currentID()
	if err != nil {
		return nil, err
	}
	if update.Patch.Has("image") {
		return nil, fmt.Errorf("update profile: %w: image changes only through a new picture", storage.ErrValidation)
	}
	previous := m.copyCurrent()

	patch, err := m.hashPasswordEntries(update.Patch)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	var newImage string
	if update.NewImage != nil && *update.NewImage != "" {
		newImage, err = m.files.SaveProfileImage(id, *update.NewImage)
		if err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		patch = patch.Set("image", newImage)
	}

	if err := m.users.Update(ctx, id, patch); err != nil {
		if newImage != "" {
			if rmErr := m.files.Remove(newImage); rmErr != nil {
				m.logger.Warn("remove unused profile image", "path", newImage, "error", rmErr)
			}
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if newImage != "" && previous.Image != nil && *previous.Image != "" && *previous.Image != newImage {
		m.removeUnreferenced(ctx, *previous.Image)
	}

	user, err := m.refresh(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// removeUnreferenced deletes a replaced profile image unless another row
// still points at it. Failures are logged; the profile update already holds.
func (m *Manager) removeUnreferenced(ctx context.Context, path string) {
	refs, err := m.users.FileReferences(ctx, path)
	if err != nil {
		m.logger.Warn("count previous profile image references", "path", path, "error", err)
		return
	}
	if refs > 0 {
		m.logger.Warn("keep previous profile image", "path", path, "error", storage.ErrFileShared, "references", refs)
		return
	}
	if err := m.files.Remove(path); err != nil {
		m.logger.Warn("remove previous profile image", "path", path, "error", err)
	}
}

// hashPasswordEntries returns a copy of patch with password values encoded.
func (m *Manager) hashPasswordEntries(patch storage.Patch) (storage.Patch, error) {
	out := make(storage.Patch, 0, len(patch))
	for _, f := range patch {
		if f.Column != "password" {
			out = append(out, f)
			continue
		}

		var plain []byte
		switch v := f.Value.(type) {
		case string:
			plain = []byte(v)
		case *string:
			if v != nil {
				plain = []byte(*v)
			}
		case []byte:
			plain = v
		case nil:
		default:
			return nil, fmt.Errorf("%w: password: unsupported value %T", storage.ErrValidation, f.Value)
		}
		if len(plain) == 0 {
			// Left as-is so storage rejects the empty value.
			out = append(out, f)
			continue
		}

		hash, err := m.hasher.Hash(plain)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.FieldValue{Column: "password", Value: hash})
	}
	return out, nil
}

// AddPhone allows one phone per type. A Primary phone is mirrored into the
// user's country_code and phone_number.
func (m *Manager) AddPhone(ctx context.Context, countryCode, number string, phoneType storage.PhoneType) (*storage.PhoneNumber, error) {
	id, err := m.currentID()
	if err != nil {
		return nil, err
	}

	existing, err := m.phones.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("add phone: %w", err)
	}
	for _, p := range existing {
		if p.PhoneType == phoneType {
			return nil, ErrPhoneTypeExists
		}
	}

	phone := &storage.PhoneNumber{
		UserID:      id,
		CountryCode: strings.TrimSpace(countryCode),
		PhoneNumber: strings.TrimSpace(number),
		PhoneType:   phoneType,
	}
	if err := m.phones.Add(ctx, phone); err != nil {
		if errors.Is(err, storage.ErrUniqueViolation) {
			return nil, ErrPhoneTypeExists
		}
		return nil, fmt.Errorf("add phone: %w", err)
	}

	if phoneType == storage.PhoneTypePrimary {
		patch := storage.Patch{}.
			Set("country_code", phone.CountryCode).
			Set("phone_number", phone.PhoneNumber)
		if err := m.users.Update(ctx, id, patch); err != nil {
			if delErr := m.phones.Delete(ctx, phone.ID); delErr != nil {
				m.logger.Warn("roll back primary phone", "phone_id", phone.ID, "error", delErr)
			}
			return nil, fmt.Errorf("add phone: sync primary: %w", err)
		}
		if _, err := m.refresh(ctx, id); err != nil {
			return nil, fmt.Errorf("add phone: %w", err)
		}
	}

	m.logger.Info("phone added", "user_id", id, "phone_type", string(phoneType))
	return phone, nil
}

// DeletePhone removes one of the signed-in user's phones. Removing the
// Primary phone clears the mirrored user fields.
func (m *Manager) DeletePhone(ctx context.Context, phoneID string) error {
	id, err := m.currentID()
	if err != nil {
		return err
	}

	phone, err := m.phones.Get(ctx, phoneID)
	if err != nil {
		return fmt.Errorf("delete phone: %w", err)
	}
	if phone == nil || phone.UserID != id {
		return fmt.Errorf("delete phone %s: %w", phoneID, storage.ErrNotFound)
	}

	if err := m.phones.Delete(ctx, phoneID); err != nil {
		return fmt.Errorf("delete phone: %w", err)
	}

	if phone.PhoneType == storage.PhoneTypePrimary {
		patch := storage.Patch{}.Set("country_code", nil).Set("phone_number", nil)
		if err := m.users.Update(ctx, id, patch); err != nil {
			return fmt.Errorf("delete phone: clear primary: %w", err)
		}
		if _, err := m.refresh(ctx, id); err != nil {
			return fmt.Errorf("delete phone: %w", err)
		}
	}
	return nil
}

func (m *Manager) Phones(ctx context.Context) ([]storage.PhoneNumber, error) {
	id, err := m.currentID()
	if err != nil {
		return nil, err
	}
	phones, err := m.phones.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list phones: %w", err)
	}
	return phones, nil
}

func (m *Manager) Overview(ctx context.Context) (Overview, error) {
	id, err := m.currentID()
	if err != nil {
		return Overview{}, err
	}

	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		phones, err := m.phones.ListByUser(gctx, id)
		out.Phones = len(phones)
		return err
	})
	g.Go(func() error {
		bookings, err := m.bookings.ListByUser(gctx, id)
		out.Bookings = len(bookings)
		return err
	})
	g.Go(func() error {
		docs, err := m.documents.ListByUser(gctx, id)
		out.Documents = len(docs)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("load overview: %w", err)
	}
	return out, nil
}
