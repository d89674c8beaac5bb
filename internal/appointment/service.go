package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/availability"
	"github.com/hackgods/booking-engine/internal/clock"
	"github.com/hackgods/booking-engine/internal/interval"
	redisclient "github.com/hackgods/booking-engine/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow    = "APPOINTMENT_NOSHOW"
	EventSystemBlockCreated   = "SYSTEM_BLOCK_CREATED"
)

// SystemBlockType is the appointment type of system-wide blocks.
const SystemBlockType = "system_block"

var (
	ErrSlotUnavailable         = errors.New("requested time is not available")
	ErrSlotBeingBooked         = errors.New("day is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidDuration         = errors.New("duration must be a positive number of minutes")
)

// transitions lists, per target status, the statuses it may be reached from.
// Terminal statuses never appear on the right-hand side.
var transitions = map[Status][]Status{
	StatusBooked:    {StatusPending},
	StatusConfirmed: {StatusPending, StatusBooked},
	StatusCancelled: ActiveStatuses,
	StatusCompleted: {StatusBooked, StatusConfirmed},
	StatusNoShow:    {StatusBooked, StatusConfirmed},
}

var statusEvents = map[Status]string{
	StatusBooked:    EventAppointmentBooked,
	StatusConfirmed: EventAppointmentConfirmed,
	StatusCancelled: EventAppointmentCancelled,
	StatusCompleted: EventAppointmentCompleted,
	StatusNoShow:    EventAppointmentNoShow,
}

type Service struct {
	repo    Repository
	configs ConfigStore
	locker  redisclient.Locker
	zones   *clock.Resolver
	avail   *availability.Computer
	logger  *zap.Logger

	buffer availability.BufferPolicy
	now    func() time.Time
}

type Option func(*Service)

func WithBuffer(b availability.BufferPolicy) Option {
	return func(s *Service) { s.buffer = b }
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, configs ConfigStore, locker redisclient.Locker, zones *clock.Resolver, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		configs: configs,
		locker:  locker,
		zones:   zones,
		logger:  logger,
		buffer:  availability.DefaultBufferPolicy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.avail = availability.NewComputer(configs, busySource{repo: repo},
		availability.WithBuffer(s.buffer),
		availability.WithNow(s.now),
	)
	return s
}

// Zones returns the resolver used to interpret account timezones.
func (s *Service) Zones() *clock.Resolver { return s.zones }

func (s *Service) accountLocation(ctx context.Context, accountID uuid.UUID) (*time.Location, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return s.zones.Resolve(account.Timezone), nil
}

// CheckAvailability returns the free blocks of the account on date, in the
// account's zone. Blocks shorter than durationMinutes are left out.
func (s *Service) CheckAvailability(ctx context.Context, accountID uuid.UUID, date clock.Date, durationMinutes int) (availability.Result, error) {
	if durationMinutes < 0 {
		return availability.Result{}, ErrInvalidDuration
	}
	loc, err := s.accountLocation(ctx, accountID)
	if err != nil {
		return availability.Result{}, err
	}

	return s.avail.Compute(ctx, availability.Query{
		AccountID: accountID,
		Location:  loc,
		Date:      date,
		Duration:  time.Duration(durationMinutes) * time.Minute,
	})
}

// BookAppointment creates an appointment at req.LocalDatetime in the
// account's zone. The availability check and the insert run under the
// account's day lock, so two requests for overlapping times on the same day
// cannot both succeed.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	loc, err := s.accountLocation(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	start, err := clock.ParseLocal(req.LocalDatetime, loc)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	apptType := ""
	if req.OfferingID != nil {
		offering, err := s.repo.GetOffering(ctx, req.AccountID, *req.OfferingID)
		if err != nil {
			if errors.Is(err, ErrOfferingNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load offering: %w", err)
		}
		if !offering.IsActive {
			return nil, ErrOfferingNotFound
		}
		apptType = offering.Name
		if duration == 0 {
			duration = offering.DurationMinutes
		}
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	mode, err := s.configs.GetReviewMode(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load review mode: %w", err)
	}
	status := DecideStatus(mode, req.Flagged)

	accountID := req.AccountID
	date := start.Date()
	var created *Appointment

	err = s.locker.WithDayLock(ctx, redisclient.DayKey(accountID.String(), date), func(lockCtx context.Context) error {
		span := time.Duration(duration)*time.Minute + time.Duration(start.Time().Second())*time.Second
		res, err := s.avail.Compute(lockCtx, availability.Query{
			AccountID: accountID,
			Location:  loc,
			Date:      date,
			Duration:  span,
		})
		if err != nil {
			return err
		}
		if !res.Fits(start.TimeOfDay(), span) {
			return ErrSlotUnavailable
		}

		// Free blocks are wall-clock minutes; recheck on absolute instants so
		// days with a zone transition cannot slip an overlap through.
		from, to := s.avail.Window(date, loc)
		existing, err := s.repo.ListActiveAppointments(lockCtx, accountID, from, to)
		if err != nil {
			return fmt.Errorf("list active appointments: %w", err)
		}
		candidate := instantInterval(start.UTC(), start.UTC().Add(time.Duration(duration)*time.Minute))
		if interval.OverlapsAny(candidate, s.bufferedBusy(existing)) {
			return ErrSlotUnavailable
		}

		appt, err := s.repo.InsertAppointment(lockCtx, NewAppointment{
			AccountID:       &accountID,
			OfferingID:      req.OfferingID,
			StartsAt:        start.UTC(),
			DurationMinutes: duration,
			Status:          status,
			CustomerPhone:   req.CustomerPhone,
			CustomerName:    req.CustomerName,
			AppointmentType: apptType,
			Notes:           req.Notes,
		})
		if err != nil {
			if errors.Is(err, ErrConflict) {
				return ErrSlotUnavailable
			}
			return err
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"account_id":     accountID.String(),
			"local_datetime": start.String(),
			"timezone":       loc.String(),
			"status":         status,
			"flagged":        req.Flagged,
			"review_mode":    mode,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("account_id", accountID.String()),
		zap.Time("starts_at", created.StartsAt),
		zap.String("status", string(created.Status)),
	)
	return created, nil
}

func (s *Service) bufferedBusy(appts []Appointment) []interval.Interval {
	before := int(s.buffer.Before / time.Second)
	after := int(s.buffer.After / time.Second)
	out := make([]interval.Interval, len(appts))
	for i, a := range appts {
		out[i] = interval.Buffer(instantInterval(a.StartsAt, a.EndsAt()), before, after)
	}
	return out
}

// instantInterval expresses [start, end) in Unix seconds.
func instantInterval(start, end time.Time) interval.Interval {
	return interval.New(int(start.Unix()), int(end.Unix()))
}

// SystemBlockRequest describes a period blocked for every account.
type SystemBlockRequest struct {
	LocalDatetime   string
	Timezone        string
	DurationMinutes int
	Notes           string
}

// BlockSystemTime stores a confirmed appointment without an account. It
// removes the period from every account's availability but does not touch
// bookings that already overlap it.
func (s *Service) BlockSystemTime(ctx context.Context, req SystemBlockRequest) (*Appointment, error) {
	if req.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	loc := s.zones.Resolve(req.Timezone)
	start, err := clock.ParseLocal(req.LocalDatetime, loc)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.InsertAppointment(ctx, NewAppointment{
		StartsAt:        start.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          StatusConfirmed,
		AppointmentType: SystemBlockType,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("insert system block: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventSystemBlockCreated, map[string]any{
		"local_datetime":   start.String(),
		"timezone":         loc.String(),
		"duration_minutes": req.DurationMinutes,
	})
	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListAppointments returns the account's and system-wide appointments that
// overlap date in the account's zone. A nil statuses means active only.
func (s *Service) ListAppointments(ctx context.Context, accountID uuid.UUID, date clock.Date, statuses []Status) ([]Appointment, error) {
	loc, err := s.accountLocation(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		statuses = ActiveStatuses
	}

	from := date.Midnight(loc)
	to := date.AddDays(1).Midnight(loc)
	appts, err := s.repo.ListAppointments(ctx, accountID, from.UTC(), to.UTC(), statuses)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}

// CancelAppointment soft-deletes an active appointment. Cancelling an
// appointment that is already cancelled returns it unchanged.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.UpdateAppointmentStatus(ctx, id, StatusCancelled, reason)
}

// ApproveAppointment settles a pending appointment as confirmed.
func (s *Service) ApproveAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, []Status{StatusPending}, StatusConfirmed, "")
}

// RejectAppointment cancels a pending appointment.
func (s *Service) RejectAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, id, []Status{StatusPending}, StatusCancelled, reason)
}

// UpdateAppointmentStatus moves an appointment along its lifecycle. Terminal
// statuses never change.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to Status, reason string) (*Appointment, error) {
	from, ok := transitions[to]
	if !ok {
		return nil, ErrInvalidStatusTransition
	}
	return s.transition(ctx, id, from, to, reason)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from []Status, to Status, reason string) (*Appointment, error) {
	appt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if to == StatusCancelled && appt.Status == StatusCancelled {
		return appt, nil
	}
	if !slices.Contains(from, appt.Status) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, from, to, reason)
	if err != nil {
		// changed by someone else between the read and the update
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	payload := map[string]any{"from": appt.Status, "to": to}
	if reason != "" {
		payload["reason"] = reason
	}
	s.logEvent(ctx, id, statusEvents[to], payload)

	return updated, nil
}

// CompleteElapsed marks settled appointments that ended more than grace
// before now as completed. It is intended to be called by the worker
// periodically and returns how many were completed.
func (s *Service) CompleteElapsed(ctx context.Context, now time.Time, grace time.Duration) (int, error) {
	candidates, err := s.repo.FindElapsed(ctx, now.Add(-grace), transitions[StatusCompleted])
	if err != nil {
		return 0, fmt.Errorf("find elapsed appointments: %w", err)
	}

	completed := 0
	for _, appt := range candidates {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, transitions[StatusCompleted], StatusCompleted, "")
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.logger.Error("failed to complete appointment",
					zap.String("appointment_id", appt.ID.String()),
					zap.Error(err),
				)
			}
			continue
		}
		completed++
		s.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{
			"from":   appt.Status,
			"reason": "worker",
		})
	}

	return completed, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
