package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var bookingUpdates = newUpdateSpec("bookings",
	[]string{
		"from_location", "to_location",
		"departure_date", "departure_time", "arrival_date", "arrival_time",
		"customer_name", "customer_contact",
		"driver_name", "driver_contact", "owner_name", "owner_contact",
		"money", "advance", "payment_amount",
		"payment_status", "oil_status", "booking_status",
		"return_type", "extras",
	},
	map[string]string{
		"from_location":    "required",
		"to_location":      "required",
		"departure_date":   "datetime=2006-01-02",
		"departure_time":   "datetime=15:04:05",
		"arrival_date":     "datetime=2006-01-02",
		"arrival_time":     "datetime=15:04:05",
		"customer_name":    "required",
		"customer_contact": "required",
		"money":            "gte=0",
		"advance":          "gte=0",
		"payment_amount":   "gte=0",
		"return_type":      "oneof=One-way Both-ways",
	},
)

const bookingColumns = `id, user_id, from_location, to_location, departure_date, departure_time,
	arrival_date, arrival_time, customer_name, customer_contact,
	driver_name, driver_contact, owner_name, owner_contact,
	money, advance, payment_amount, payment_status, oil_status,
	booking_status, return_type, extras, created_at`

type bookingRepository struct {
	conn *conn
}

func (r *bookingRepository) Create(ctx context.Context, booking *Booking) error {
	if err := r.conn.checkReady(); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("create booking: booking is nil")
	}

	booking.ID = ensureID(booking.ID)
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = nowUTC()
	}
	if err := validateEntity("create booking", booking); err != nil {
		return err
	}

	_, err := r.conn.db.ExecContext(ctx, `
		INSERT INTO bookings(`+bookingColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		booking.ID, booking.UserID, booking.FromLocation, booking.ToLocation,
		booking.DepartureDate, booking.DepartureTime, booking.ArrivalDate, booking.ArrivalTime,
		booking.CustomerName, booking.CustomerContact,
		nullString(booking.DriverName), nullString(booking.DriverContact),
		nullString(booking.OwnerName), nullString(booking.OwnerContact),
		booking.Money, booking.Advance, booking.PaymentAmount,
		booking.PaymentStatus, booking.OilStatus, booking.BookingStatus,
		string(booking.ReturnType), nullString(booking.Extras), fmtTime(booking.CreatedAt),
	)
	r.conn.observe("booking", "create", err)
	if err != nil {
		return fmt.Errorf("create booking: %w", classifyError(err))
	}
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id string) (*Booking, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	row := r.conn.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	r.conn.observe("booking", "get", ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

// ListByUser returns the most recent booking first.
func (r *bookingRepository) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	if err := r.conn.checkReady(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	rows, err := r.conn.db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID)
	r.conn.observe("booking", "list", err)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bookings := []Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("list bookings: %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: iterate: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) Update(ctx context.Context, id string, patch Patch) error {
	return bookingUpdates.apply(ctx, r.conn, "booking", id, patch)
}

func (r *bookingRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.conn, "booking", "bookings", id)
}

func scanBooking(scanner rowScanner) (*Booking, error) {
	var (
		booking       Booking
		driverName    sql.NullString
		driverContact sql.NullString
		ownerName     sql.NullString
		ownerContact  sql.NullString
		money         sql.NullFloat64
		advance       sql.NullFloat64
		paymentAmount sql.NullFloat64
		paymentStatus sql.NullString
		oilStatus     sql.NullString
		bookingStatus sql.NullString
		returnType    sql.NullString
		extras        sql.NullString
		createdAt     string
	)

	if err := scanner.Scan(
		&booking.ID, &booking.UserID, &booking.FromLocation, &booking.ToLocation,
		&booking.DepartureDate, &booking.DepartureTime, &booking.ArrivalDate, &booking.ArrivalTime,
		&booking.CustomerName, &booking.CustomerContact,
		&driverName, &driverContact, &ownerName, &ownerContact,
		&money, &advance, &paymentAmount,
		&paymentStatus, &oilStatus, &bookingStatus,
		&returnType, &extras, &createdAt,
	); err != nil {
		return nil, err
	}

	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	booking.CreatedAt = parsed
	booking.DriverName = stringPtr(driverName)
	booking.DriverContact = stringPtr(driverContact)
	booking.OwnerName = stringPtr(ownerName)
	booking.OwnerContact = stringPtr(ownerContact)
	booking.Money = money.Float64
	booking.Advance = advance.Float64
	booking.PaymentAmount = paymentAmount.Float64
	booking.PaymentStatus = paymentStatus.String
	booking.OilStatus = oilStatus.String
	booking.BookingStatus = bookingStatus.String
	booking.ReturnType = ReturnType(returnType.String)
	booking.Extras = stringPtr(extras)
	return &booking, nil
}
