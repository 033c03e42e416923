package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/typicalmohit/tinku-ji/internal/storage"
)

const (
	defaultBookingStatus = "booked"
	defaultPaymentStatus = "pending"
	defaultOilStatus     = "pending"
)

var (
	bookingStatuses = map[string]string{
		"booked":    "booked",
		"confirm":   "confirmed",
		"confirmed": "confirmed",
		"completed": "completed",
		"cancelled": "cancelled",
		"canceled":  "cancelled",
	}
	paymentStatuses = map[string]string{
		"pending":   "pending",
		"partial":   "partial",
		"paid":      "paid",
		"unpaid":    "unpaid",
		"completed": "completed",
	}
	oilStatuses = map[string]string{
		"pending":      "pending",
		"included":     "included",
		"not_included": "not_included",
		"not included": "not_included",
	}
)

type BookingService struct {
	bookings storage.BookingRepository
}

func NewBookingService(bookings storage.BookingRepository) *BookingService {
	return &BookingService{bookings: bookings}
}

// Create fills status defaults and normalizes status spelling before insert.
func (s *BookingService) Create(ctx context.Context, booking *storage.Booking) error {
	if booking == nil {
		return fmt.Errorf("%w: booking is required", ErrValidation)
	}
	var err error
	if booking.BookingStatus, err = normalizeStatus("booking_status", booking.BookingStatus, defaultBookingStatus, bookingStatuses); err != nil {
		return err
	}
	if booking.PaymentStatus, err = normalizeStatus("payment_status", booking.PaymentStatus, defaultPaymentStatus, paymentStatuses); err != nil {
		return err
	}
	if booking.OilStatus, err = normalizeStatus("oil_status", booking.OilStatus, defaultOilStatus, oilStatuses); err != nil {
		return err
	}
	if booking.ReturnType == "" {
		booking.ReturnType = storage.ReturnTypeOneWay
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*storage.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

// Update normalizes status columns present in patch and forwards it.
func (s *BookingService) Update(ctx context.Context, id string, patch storage.Patch) error {
	normalized := make(storage.Patch, 0, len(patch))
	for _, field := range patch {
		value := field.Value
		if raw, ok := value.(string); ok {
			var (
				known map[string]string
				err   error
			)
			switch field.Column {
			case "booking_status":
				known = bookingStatuses
			case "payment_status":
				known = paymentStatuses
			case "oil_status":
				known = oilStatuses
			}
			if known != nil {
				if value, err = normalizeStatus(field.Column, raw, "", known); err != nil {
					return err
				}
			}
		}
		normalized = append(normalized, storage.FieldValue{Column: field.Column, Value: value})
	}

	if err := s.bookings.Update(ctx, id, normalized); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

func (s *BookingService) Delete(ctx context.Context, id string) error {
	if err := s.bookings.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}

// List returns the user's bookings newest first, narrowed by the request
// filters.
func (s *BookingService) List(ctx context.Context, req ListBookingsRequest) ([]storage.Booking, error) {
	if req.Month < 0 || req.Month > 12 {
		return nil, fmt.Errorf("%w: month must be 1-12", ErrValidation)
	}
	bookingStatus, err := normalizeFilter("booking_status", req.BookingStatus, bookingStatuses)
	if err != nil {
		return nil, err
	}
	paymentStatus, err := normalizeFilter("payment_status", req.PaymentStatus, paymentStatuses)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	out := make([]storage.Booking, 0, len(bookings))
	for _, booking := range bookings {
		if bookingStatus != "" && strings.ToLower(booking.BookingStatus) != bookingStatus {
			continue
		}
		if paymentStatus != "" && strings.ToLower(booking.PaymentStatus) != paymentStatus {
			continue
		}
		if req.Year != 0 || req.Month != 0 {
			departure, err := time.Parse(time.DateOnly, booking.DepartureDate)
			if err != nil {
				continue
			}
			if req.Year != 0 && departure.Year() != req.Year {
				continue
			}
			if req.Month != 0 && int(departure.Month()) != req.Month {
				continue
			}
		}
		out = append(out, booking)
	}
	return out, nil
}

// GroupByMonth groups bookings under "January 2024" style labels, latest
// departure month first. Bookings keep their relative order within a group.
func GroupByMonth(bookings []storage.Booking) []BookingMonth {
	type bucket struct {
		key   time.Time
		group BookingMonth
	}
	buckets := map[string]*bucket{}
	for _, booking := range bookings {
		departure, err := time.Parse(time.DateOnly, booking.DepartureDate)
		if err != nil {
			continue
		}
		label := departure.Format("January 2006")
		b, ok := buckets[label]
		if !ok {
			b = &bucket{
				key:   time.Date(departure.Year(), departure.Month(), 1, 0, 0, 0, 0, time.UTC),
				group: BookingMonth{Label: label},
			}
			buckets[label] = b
		}
		b.group.Bookings = append(b.group.Bookings, booking)
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].key.After(ordered[j].key) })

	out := make([]BookingMonth, 0, len(ordered))
	for _, b := range ordered {
		out = append(out, b.group)
	}
	return out
}

func normalizeStatus(column, raw, fallback string, known map[string]string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" && fallback != "" {
		return fallback, nil
	}
	value, ok := known[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown %s %q", ErrValidation, column, raw)
	}
	return value, nil
}

func normalizeFilter(column, raw string, known map[string]string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" || key == "all" {
		return "", nil
	}
	return normalizeStatus(column, key, "", known)
}
