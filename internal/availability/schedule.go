package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-engine/internal/clock"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// LocalTimeRange is a business-hours range in account-local wall-clock time.
type LocalTimeRange struct {
	Start clock.TimeOfDay `json:"start"`
	End   clock.TimeOfDay `json:"end"`
}

func (r LocalTimeRange) Validate() error {
	if r.Start < 0 || r.End >= clock.MinutesPerDay {
		return fmt.Errorf("%w: range %s-%s outside the day", ErrInvalidSchedule, r.Start, r.End)
	}
	if r.Start >= r.End {
		return fmt.Errorf("%w: range start %s not before end %s", ErrInvalidSchedule, r.Start, r.End)
	}
	return nil
}

type DaySchedule struct {
	IsAvailable bool             `json:"is_available"`
	TimeSlots   []LocalTimeRange `json:"time_slots"`
}

// Open reports whether the day has any bookable hours.
func (d DaySchedule) Open() bool {
	return d.IsAvailable && len(d.TimeSlots) > 0
}

func (d DaySchedule) Validate() error {
	if !d.IsAvailable && len(d.TimeSlots) > 0 {
		return fmt.Errorf("%w: unavailable day has time slots", ErrInvalidSchedule)
	}
	for i, r := range d.TimeSlots {
		if err := r.Validate(); err != nil {
			return err
		}
		if i > 0 && r.Start < d.TimeSlots[i-1].End {
			return fmt.Errorf("%w: time slots must be ordered and disjoint", ErrInvalidSchedule)
		}
	}
	return nil
}

// WeeklySchedule maps weekday (0=Sunday..6=Saturday) to the day's hours.
// A missing weekday is closed.
type WeeklySchedule map[time.Weekday]DaySchedule

func (w WeeklySchedule) Day(wd time.Weekday) DaySchedule {
	return w[wd]
}

func (w WeeklySchedule) Validate() error {
	for wd, day := range w {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: weekday %d", ErrInvalidSchedule, wd)
		}
		if err := day.Validate(); err != nil {
			return fmt.Errorf("%s: %w", wd, err)
		}
	}
	return nil
}

// DefaultWeeklySchedule is the self-healing schedule created for an account
// that has never configured one: 09:00-17:00, Monday to Friday.
func DefaultWeeklySchedule() WeeklySchedule {
	w := make(WeeklySchedule, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if wd == time.Sunday || wd == time.Saturday {
			w[wd] = DaySchedule{IsAvailable: false}
			continue
		}
		w[wd] = DaySchedule{
			IsAvailable: true,
			TimeSlots:   []LocalTimeRange{{Start: 9 * 60, End: 17 * 60}},
		}
	}
	return w
}

type BlackoutDate struct {
	AccountID uuid.UUID  `json:"account_id"`
	Date      clock.Date `json:"date"`
	Reason    string     `json:"reason"`
}

// BlackoutSet maps a blacked-out day to its reason.
type BlackoutSet map[clock.Date]string

func NewBlackoutSet(dates []BlackoutDate) BlackoutSet {
	s := make(BlackoutSet, len(dates))
	for _, d := range dates {
		s[d.Date] = d.Reason
	}
	return s
}

func (s BlackoutSet) Contains(d clock.Date) bool {
	_, ok := s[d]
	return ok
}

// BufferPolicy is the safety margin padded around every booked appointment.
type BufferPolicy struct {
	Before time.Duration
	After  time.Duration
}

var DefaultBufferPolicy = BufferPolicy{Before: 30 * time.Minute, After: 30 * time.Minute}
