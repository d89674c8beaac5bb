package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hackgods/booking-engine/internal/appointment"
	"github.com/hackgods/booking-engine/internal/clock"
	"github.com/hackgods/booking-engine/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.Migrate(cmd.Context(), application.Pool, logger)
	},
}

var availDuration int

var availabilityCmd = &cobra.Command{
	Use:   "availability [account-id] [date]",
	Short: "Show free blocks of an account on a date",
	Long: `Show the free blocks of an account on a local date.

Examples:
  bookingctl availability 6f1c... 2026-10-19
  bookingctl availability 6f1c... 2026-10-19 -d 45`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := parseUUIDArg("account id", args[0])
		if err != nil {
			return err
		}
		date, err := clock.ParseDate(args[1])
		if err != nil {
			return err
		}

		res, err := application.Service.CheckAvailability(cmd.Context(), accountID, date, availDuration)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n", res.Date, res.Timezone)
		if len(res.Blocks) == 0 {
			fmt.Printf("  no free time: %s\n", res.Reason)
			return nil
		}
		for _, b := range res.Blocks {
			fmt.Printf("  %s - %s\n", b.Start, b.End)
		}
		return nil
	},
}

var (
	bookDuration int
	bookService  string
	bookPhone    string
	bookName     string
	bookNotes    string
	bookFlagged  bool
)

var bookCmd = &cobra.Command{
	Use:   "book [account-id] [local-datetime]",
	Short: "Book an appointment at a local time",
	Long: `Book an appointment. The datetime is wall-clock time in the
account's timezone.

Examples:
  bookingctl book 6f1c... "2026-10-19 14:30" -d 60 --phone +15550100
  bookingctl book 6f1c... 2026-10-19T09:00 --service 0a4e...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := parseUUIDArg("account id", args[0])
		if err != nil {
			return err
		}

		req := appointment.BookingRequest{
			AccountID:       accountID,
			CustomerPhone:   bookPhone,
			CustomerName:    bookName,
			LocalDatetime:   args[1],
			DurationMinutes: bookDuration,
			Notes:           bookNotes,
			Flagged:         bookFlagged,
		}
		if bookService != "" {
			serviceID, err := parseUUIDArg("service id", bookService)
			if err != nil {
				return err
			}
			req.OfferingID = &serviceID
		}

		appt, err := application.Service.BookAppointment(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("failed to book: %w", err)
		}

		printAppointment(appt)
		return nil
	},
}

var cancelReason string

var cancelCmd = &cobra.Command{
	Use:   "cancel [appointment-id]",
	Short: "Cancel an appointment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUIDArg("appointment id", args[0])
		if err != nil {
			return err
		}

		appt, err := application.Service.CancelAppointment(cmd.Context(), id, cancelReason)
		if err != nil {
			return fmt.Errorf("failed to cancel: %w", err)
		}

		printAppointment(appt)
		return nil
	},
}

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list [account-id] [date]",
	Short: "List appointments of an account on a date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := parseUUIDArg("account id", args[0])
		if err != nil {
			return err
		}
		date, err := clock.ParseDate(args[1])
		if err != nil {
			return err
		}

		var statuses []appointment.Status
		switch listStatus {
		case "":
		case "all":
			statuses = appointment.AllStatuses
		default:
			for _, raw := range strings.Split(listStatus, ",") {
				s, err := appointment.ParseStatus(strings.TrimSpace(raw))
				if err != nil {
					return err
				}
				statuses = append(statuses, s)
			}
		}

		appts, err := application.Service.ListAppointments(cmd.Context(), accountID, date, statuses)
		if err != nil {
			return err
		}
		if len(appts) == 0 {
			fmt.Println("no appointments")
			return nil
		}
		for i := range appts {
			printAppointment(&appts[i])
		}
		return nil
	},
}

var completeGrace time.Duration

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Mark elapsed appointments completed once",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := application.Service.CompleteElapsed(cmd.Context(), time.Now(), completeGrace)
		if err != nil {
			return err
		}
		fmt.Printf("completed %d appointments\n", n)
		return nil
	},
}

func init() {
	availabilityCmd.Flags().IntVarP(&availDuration, "duration", "d", 0, "only blocks at least this many minutes long")

	bookCmd.Flags().IntVarP(&bookDuration, "duration", "d", 0, "duration in minutes (default: the service's)")
	bookCmd.Flags().StringVar(&bookService, "service", "", "service (offering) id")
	bookCmd.Flags().StringVar(&bookPhone, "phone", "", "customer phone")
	bookCmd.Flags().StringVar(&bookName, "name", "", "customer name")
	bookCmd.Flags().StringVar(&bookNotes, "notes", "", "notes")
	bookCmd.Flags().BoolVar(&bookFlagged, "flagged", false, "mark the request as flagged for review")

	cancelCmd.Flags().StringVarP(&cancelReason, "reason", "r", "", "cancellation reason")

	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "comma separated statuses or all (default: active)")

	completeCmd.Flags().DurationVar(&completeGrace, "grace", time.Hour, "time after its end before an appointment is completed")
}

func printAppointment(a *appointment.Appointment) {
	scope := "system-wide"
	if a.AccountID != nil {
		scope = a.AccountID.String()
	}
	offering := ""
	if a.OfferingID != nil && *a.OfferingID != uuid.Nil {
		offering = " " + a.AppointmentType
	}
	fmt.Printf("%s  %s  %s +%dm  %s%s\n",
		a.ID, a.Status, a.StartsAt.Format(time.RFC3339), a.DurationMinutes, scope, offering)
}
