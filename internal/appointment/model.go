package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusBooked    Status = "booked"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "noshow"
)

// ActiveStatuses occupy time and block availability. This is the default
// filter for every availability and listing query.
var ActiveStatuses = []Status{StatusPending, StatusBooked, StatusConfirmed}

var AllStatuses = []Status{
	StatusPending, StatusBooked, StatusConfirmed,
	StatusCancelled, StatusCompleted, StatusNoShow,
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusBooked || s == StatusConfirmed
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// ReviewMode is the tenant policy deciding whether new bookings need manual
// approval.
type ReviewMode string

const (
	ReviewNever     ReviewMode = "never"
	ReviewOnRedflag ReviewMode = "on_redflag"
	ReviewAlways    ReviewMode = "always"
)

func ParseReviewMode(s string) (ReviewMode, error) {
	switch m := ReviewMode(s); m {
	case ReviewNever, ReviewOnRedflag, ReviewAlways:
		return m, nil
	case "":
		return ReviewNever, nil
	}
	return "", fmt.Errorf("unknown review mode %q", s)
}

type Account struct {
	ID         uuid.UUID
	Name       string
	Timezone   string
	ReviewMode ReviewMode
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Offering is a bookable service of an account.
type Offering struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Name            string
	DurationMinutes int
	IsActive        bool
	CreatedAt       time.Time
}

type Appointment struct {
	ID              uuid.UUID
	AccountID       *uuid.UUID // nil blocks time for every account
	OfferingID      *uuid.UUID
	StartsAt        time.Time
	DurationMinutes int
	Status          Status
	CustomerPhone   string
	CustomerName    string
	AppointmentType string
	Notes           string
	CancelReason    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) EndsAt() time.Time {
	return a.StartsAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

func (a Appointment) SystemWide() bool { return a.AccountID == nil }

// NewAppointment holds the fields persisted by InsertAppointment.
type NewAppointment struct {
	AccountID       *uuid.UUID
	OfferingID      *uuid.UUID
	StartsAt        time.Time
	DurationMinutes int
	Status          Status
	CustomerPhone   string
	CustomerName    string
	AppointmentType string
	Notes           string
}

// BookingRequest is what the chat tool-call and REST layers submit.
type BookingRequest struct {
	AccountID       uuid.UUID
	OfferingID      *uuid.UUID
	CustomerPhone   string
	CustomerName    string
	LocalDatetime   string // YYYY-MM-DDTHH:MM[:SS] in the account's zone
	DurationMinutes int    // 0 uses the offering's duration
	Notes           string
	Flagged         bool // content-safety classification of the inbound message
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
