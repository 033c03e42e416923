package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/typicalmohit/tinku-ji/internal/app"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

func newBookingCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Trip bookings of the signed-in user",
	}
	cmd.AddCommand(
		newBookingAddCommand(deps),
		newBookingListCommand(deps),
		newBookingUpdateCommand(deps),
		newBookingDeleteCommand(deps),
	)
	return cmd
}

func newBookingAddCommand(deps commandDeps) *cobra.Command {
	var (
		booking       storage.Booking
		returnType    string
		driverName    string
		driverContact string
		ownerName     string
		ownerContact  string
		extras        string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a booking",
		Example: "  tinkuji booking add --from Pune --to Mumbai \\\n" +
			"    --departure-date 2025-01-10 --departure-time 08:00:00 \\\n" +
			"    --arrival-date 2025-01-10 --arrival-time 12:00:00 \\\n" +
			"    --customer Ravi --customer-contact 9000000000 --money 4500",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("booking add does not accept positional arguments")
			}
			switch strings.ToLower(strings.TrimSpace(returnType)) {
			case "", "one-way":
				booking.ReturnType = storage.ReturnTypeOneWay
			case "both-ways":
				booking.ReturnType = storage.ReturnTypeBothWays
			default:
				return usageErrorf("--return-type must be One-way or Both-ways")
			}
			booking.DriverName = stringPtr(driverName)
			booking.DriverContact = stringPtr(driverContact)
			booking.OwnerName = stringPtr(ownerName)
			booking.OwnerContact = stringPtr(ownerContact)
			booking.Extras = stringPtr(extras)

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				userID, err := env.currentUserID()
				if err != nil {
					return err
				}
				booking.UserID = userID
				if err := env.bookings.Create(ctx, &booking); err != nil {
					return err
				}
				return printBooking(deps, &booking)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&booking.FromLocation, "from", "", "Pick-up location")
	flags.StringVar(&booking.ToLocation, "to", "", "Drop location")
	flags.StringVar(&booking.DepartureDate, "departure-date", "", "Departure date YYYY-MM-DD")
	flags.StringVar(&booking.DepartureTime, "departure-time", "", "Departure time HH:MM:SS")
	flags.StringVar(&booking.ArrivalDate, "arrival-date", "", "Arrival date YYYY-MM-DD")
	flags.StringVar(&booking.ArrivalTime, "arrival-time", "", "Arrival time HH:MM:SS")
	flags.StringVar(&booking.CustomerName, "customer", "", "Customer name")
	flags.StringVar(&booking.CustomerContact, "customer-contact", "", "Customer contact")
	flags.StringVar(&driverName, "driver", "", "Driver name")
	flags.StringVar(&driverContact, "driver-contact", "", "Driver contact")
	flags.StringVar(&ownerName, "owner", "", "Vehicle owner name")
	flags.StringVar(&ownerContact, "owner-contact", "", "Vehicle owner contact")
	flags.Float64Var(&booking.Money, "money", 0, "Agreed fare")
	flags.Float64Var(&booking.Advance, "advance", 0, "Advance received")
	flags.Float64Var(&booking.PaymentAmount, "payment-amount", 0, "Amount paid")
	flags.StringVar(&booking.PaymentStatus, "payment-status", "", "pending, partial, paid, unpaid or completed")
	flags.StringVar(&booking.OilStatus, "oil-status", "", "pending, included or not_included")
	flags.StringVar(&booking.BookingStatus, "status", "", "booked, confirmed, completed or cancelled")
	flags.StringVar(&returnType, "return-type", string(storage.ReturnTypeOneWay), "One-way or Both-ways")
	flags.StringVar(&extras, "extras", "", "Free-form notes")
	return cmd
}

func newBookingListCommand(deps commandDeps) *cobra.Command {
	var (
		req     app.ListBookingsRequest
		byMonth bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookings, newest first",
		Example: "  tinkuji booking list --status confirmed\n" +
			"  tinkuji booking list --year 2025 --month 1 --by-month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("booking list does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				userID, err := env.currentUserID()
				if err != nil {
					return err
				}
				req.UserID = userID
				bookings, err := env.bookings.List(ctx, req)
				if err != nil {
					return err
				}

				if byMonth {
					groups := app.GroupByMonth(bookings)
					if deps.globals.JSON {
						out := make([]map[string]any, 0, len(groups))
						for _, g := range groups {
							items := make([]bookingOutput, 0, len(g.Bookings))
							for i := range g.Bookings {
								items = append(items, toBookingOutput(&g.Bookings[i]))
							}
							out = append(out, map[string]any{"month": g.Label, "bookings": items})
						}
						return printJSON(deps.out, out)
					}
					if deps.globals.Quiet {
						return nil
					}
					for _, g := range groups {
						if _, err := fmt.Fprintf(deps.out, "%s\n", g.Label); err != nil {
							return err
						}
						for i := range g.Bookings {
							if err := printBookingLine(deps, &g.Bookings[i], "  "); err != nil {
								return err
							}
						}
					}
					return nil
				}

				if deps.globals.JSON {
					out := make([]bookingOutput, 0, len(bookings))
					for i := range bookings {
						out = append(out, toBookingOutput(&bookings[i]))
					}
					return printJSON(deps.out, out)
				}
				if deps.globals.Quiet {
					return nil
				}
				for i := range bookings {
					if err := printBookingLine(deps, &bookings[i], ""); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.BookingStatus, "status", "", "Filter by booking status")
	cmd.Flags().StringVar(&req.PaymentStatus, "payment-status", "", "Filter by payment status")
	cmd.Flags().IntVar(&req.Year, "year", 0, "Filter by departure year")
	cmd.Flags().IntVar(&req.Month, "month", 0, "Filter by departure month (1-12)")
	cmd.Flags().BoolVar(&byMonth, "by-month", false, "Group by departure month")
	return cmd
}

func newBookingUpdateCommand(deps commandDeps) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update booking columns",
		Example: "  tinkuji booking update 3f2c... --set payment_status=paid --set payment_amount=4500",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("booking update requires exactly one booking id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseSetFlags(sets)
			if err != nil {
				return err
			}
			if len(patch) == 0 {
				return usageErrorf("booking update requires at least one --set")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				if _, err := ownedBooking(ctx, env, args[0]); err != nil {
					return err
				}
				if err := env.bookings.Update(ctx, args[0], patch); err != nil {
					return err
				}
				updated, err := env.bookings.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printBooking(deps, updated)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Booking column=value (repeatable; value null clears)")
	return cmd
}

func newBookingDeleteCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a booking",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("booking delete requires exactly one booking id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				if _, err := ownedBooking(ctx, env, args[0]); err != nil {
					return err
				}
				if err := env.bookings.Delete(ctx, args[0]); err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{"deleted": args[0]})
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err := fmt.Fprintf(deps.out, "deleted booking %s\n", args[0])
				return err
			})
		},
	}
}

// ownedBooking hides bookings of other users behind ErrNotFound.
func ownedBooking(ctx context.Context, env *runtimeEnv, id string) (*storage.Booking, error) {
	userID, err := env.currentUserID()
	if err != nil {
		return nil, err
	}
	booking, err := env.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil || booking.UserID != userID {
		return nil, fmt.Errorf("booking %s: %w", id, storage.ErrNotFound)
	}
	return booking, nil
}

type bookingOutput struct {
	ID              string  `json:"id"`
	FromLocation    string  `json:"from_location"`
	ToLocation      string  `json:"to_location"`
	DepartureDate   string  `json:"departure_date"`
	DepartureTime   string  `json:"departure_time"`
	ArrivalDate     string  `json:"arrival_date"`
	ArrivalTime     string  `json:"arrival_time"`
	CustomerName    string  `json:"customer_name"`
	CustomerContact string  `json:"customer_contact"`
	DriverName      string  `json:"driver_name,omitempty"`
	DriverContact   string  `json:"driver_contact,omitempty"`
	OwnerName       string  `json:"owner_name,omitempty"`
	OwnerContact    string  `json:"owner_contact,omitempty"`
	Money           float64 `json:"money"`
	Advance         float64 `json:"advance"`
	PaymentAmount   float64 `json:"payment_amount"`
	PaymentStatus   string  `json:"payment_status"`
	OilStatus       string  `json:"oil_status"`
	BookingStatus   string  `json:"booking_status"`
	ReturnType      string  `json:"return_type"`
	Extras          string  `json:"extras,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func toBookingOutput(b *storage.Booking) bookingOutput {
	return bookingOutput{
		ID:              b.ID,
		FromLocation:    b.FromLocation,
		ToLocation:      b.ToLocation,
		DepartureDate:   b.DepartureDate,
		DepartureTime:   b.DepartureTime,
		ArrivalDate:     b.ArrivalDate,
		ArrivalTime:     b.ArrivalTime,
		CustomerName:    b.CustomerName,
		CustomerContact: b.CustomerContact,
		DriverName:      derefString(b.DriverName),
		DriverContact:   derefString(b.DriverContact),
		OwnerName:       derefString(b.OwnerName),
		OwnerContact:    derefString(b.OwnerContact),
		Money:           b.Money,
		Advance:         b.Advance,
		PaymentAmount:   b.PaymentAmount,
		PaymentStatus:   b.PaymentStatus,
		OilStatus:       b.OilStatus,
		BookingStatus:   b.BookingStatus,
		ReturnType:      string(b.ReturnType),
		Extras:          derefString(b.Extras),
		CreatedAt:       b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func printBooking(deps commandDeps, b *storage.Booking) error {
	if deps.globals.JSON {
		return printJSON(deps.out, toBookingOutput(b))
	}
	if deps.globals.Quiet {
		return nil
	}
	return printBookingLine(deps, b, "")
}

func printBookingLine(deps commandDeps, b *storage.Booking, indent string) error {
	_, err := fmt.Fprintf(
		deps.out,
		"%s%s %s %s -> %s customer=%s fare=%s status=%s payment=%s id=%s\n",
		indent,
		b.DepartureDate,
		b.DepartureTime,
		b.FromLocation,
		b.ToLocation,
		b.CustomerName,
		humanize.CommafWithDigits(b.Money, 2),
		b.BookingStatus,
		b.PaymentStatus,
		b.ID,
	)
	return err
}
