package appointment

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-engine/internal/availability"
)

// memoryStore is an in-memory Repository and ConfigStore. Like the Postgres
// exclusion constraint, it rejects overlapping active appointments of the
// same account.
type memoryStore struct {
	mu sync.Mutex

	accounts     map[uuid.UUID]*Account
	offerings    map[uuid.UUID]*Offering
	appointments map[uuid.UUID]*Appointment
	schedules    map[uuid.UUID]availability.WeeklySchedule
	blackouts    map[uuid.UUID]availability.BlackoutSet
	events       []EventLog

	listErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:     make(map[uuid.UUID]*Account),
		offerings:    make(map[uuid.UUID]*Offering),
		appointments: make(map[uuid.UUID]*Appointment),
		schedules:    make(map[uuid.UUID]availability.WeeklySchedule),
		blackouts:    make(map[uuid.UUID]availability.BlackoutSet),
	}
}

func (m *memoryStore) addAccount(tz string, mode ReviewMode) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.accounts[id] = &Account{ID: id, Name: "acct", Timezone: tz, ReviewMode: mode}
	return id
}

func (m *memoryStore) put(a Appointment) *Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.appointments[a.ID] = &a
	return &a
}

func (m *memoryStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.EventType
	}
	return out
}

func (m *memoryStore) GetAccount(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryStore) GetOffering(_ context.Context, accountID, id uuid.UUID) (*Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offerings[id]
	if !ok || o.AccountID != accountID {
		return nil, ErrOfferingNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memoryStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryStore) ListActiveAppointments(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return m.ListAppointments(ctx, accountID, from, to, ActiveStatuses)
}

func (m *memoryStore) ListAppointments(_ context.Context, accountID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Appointment
	for _, a := range m.appointments {
		if a.AccountID != nil && *a.AccountID != accountID {
			continue
		}
		if !slices.Contains(statuses, a.Status) {
			continue
		}
		if a.StartsAt.Before(to) && a.EndsAt().After(from) {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(x, y Appointment) int { return x.StartsAt.Compare(y.StartsAt) })
	return out, nil
}

func (m *memoryStore) InsertAppointment(_ context.Context, na NewAppointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := Appointment{
		ID:              uuid.New(),
		AccountID:       na.AccountID,
		OfferingID:      na.OfferingID,
		StartsAt:        na.StartsAt,
		DurationMinutes: na.DurationMinutes,
		Status:          na.Status,
		CustomerPhone:   na.CustomerPhone,
		CustomerName:    na.CustomerName,
		AppointmentType: na.AppointmentType,
		Notes:           na.Notes,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if a.AccountID != nil && a.Status.Active() {
		for _, other := range m.appointments {
			if other.AccountID == nil || *other.AccountID != *a.AccountID || !other.Status.Active() {
				continue
			}
			if other.StartsAt.Before(a.EndsAt()) && other.EndsAt().After(a.StartsAt) {
				return nil, ErrConflict
			}
		}
	}
	m.appointments[a.ID] = &a
	cp := a
	return &cp, nil
}

func (m *memoryStore) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from []Status, to Status, reason string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || !slices.Contains(from, a.Status) {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	if reason != "" {
		r := reason
		a.CancelReason = &r
	}
	cp := *a
	return &cp, nil
}

func (m *memoryStore) FindElapsed(_ context.Context, before time.Time, statuses []Status) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appointments {
		if slices.Contains(statuses, a.Status) && a.EndsAt().Before(before) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryStore) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memoryStore) GetWeeklySchedule(_ context.Context, accountID uuid.UUID) (availability.WeeklySchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.schedules[accountID]
	if !ok {
		w = availability.DefaultWeeklySchedule()
		m.schedules[accountID] = w
	}
	return w, nil
}

func (m *memoryStore) GetBlackoutDates(_ context.Context, accountID uuid.UUID) (availability.BlackoutSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blackouts[accountID], nil
}

func (m *memoryStore) GetReviewMode(_ context.Context, accountID uuid.UUID) (ReviewMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return "", ErrAccountNotFound
	}
	return a.ReviewMode, nil
}
