package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-engine/internal/availability"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrOfferingNotFound    = errors.New("offering not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrConflict is returned by InsertAppointment when storage rejects an
	// overlapping active appointment for the same account.
	ErrConflict = errors.New("overlapping appointment")
)

// Repository contains all appointment storage needed by the service.
type Repository interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetOffering(ctx context.Context, accountID, id uuid.UUID) (*Offering, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListActiveAppointments returns active appointments of the account and
	// every system-wide appointment overlapping [from, to).
	ListActiveAppointments(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]Appointment, error)
	// ListAppointments is ListActiveAppointments with an explicit status filter.
	ListAppointments(ctx context.Context, accountID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error)

	InsertAppointment(ctx context.Context, a NewAppointment) (*Appointment, error)
	// UpdateAppointmentStatus moves id to `to` only if its current status is
	// one of from. Otherwise it returns ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, reason string) (*Appointment, error)

	// FindElapsed returns appointments in one of statuses that ended before.
	FindElapsed(ctx context.Context, before time.Time, statuses []Status) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// ConfigStore is the tenant configuration the engine reads.
type ConfigStore interface {
	availability.ScheduleSource
	GetReviewMode(ctx context.Context, accountID uuid.UUID) (ReviewMode, error)
}

// busySource adapts Repository to availability.BusySource.
type busySource struct {
	repo Repository
}

func (b busySource) ListBusy(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]availability.Busy, error) {
	appts, err := b.repo.ListActiveAppointments(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	busy := make([]availability.Busy, len(appts))
	for i, a := range appts {
		busy[i] = availability.Busy{Start: a.StartsAt, End: a.EndsAt()}
	}
	return busy, nil
}
