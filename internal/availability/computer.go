package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-engine/internal/clock"
)

// Reason explains an empty or partial result.
type Reason string

const (
	ReasonOpen        Reason = ""
	ReasonBlackout    Reason = "blackout"
	ReasonClosed      Reason = "closed"
	ReasonPast        Reason = "past"
	ReasonFullyBooked Reason = "fully_booked"
)

// ScheduleSource provides an account's business-hours configuration.
// GetWeeklySchedule must self-heal: an account without a stored schedule gets
// DefaultWeeklySchedule, not an error.
type ScheduleSource interface {
	GetWeeklySchedule(ctx context.Context, accountID uuid.UUID) (WeeklySchedule, error)
	GetBlackoutDates(ctx context.Context, accountID uuid.UUID) (BlackoutSet, error)
}

// BusySource lists periods that block an account in [from, to). It must
// include system-wide periods that belong to no account.
type BusySource interface {
	ListBusy(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]Busy, error)
}

type Query struct {
	AccountID uuid.UUID
	Location  *time.Location
	Date      clock.Date
	Duration  time.Duration
}

type Result struct {
	Date     clock.Date  `json:"date"`
	Timezone string      `json:"timezone"`
	Blocks   []FreeBlock `json:"free_blocks"`
	Reason   Reason      `json:"reason,omitempty"`
}

// Fits reports whether start plus d lies inside one of the free blocks.
func (r Result) Fits(start clock.TimeOfDay, d time.Duration) bool {
	for _, b := range r.Blocks {
		if b.Fits(start, d) {
			return true
		}
	}
	return false
}

type Computer struct {
	schedules ScheduleSource
	busy      BusySource
	buffer    BufferPolicy
	now       func() time.Time
}

type Option func(*Computer)

func WithBuffer(b BufferPolicy) Option {
	return func(c *Computer) { c.buffer = b }
}

// WithNow overrides the wall clock used for today trimming.
func WithNow(now func() time.Time) Option {
	return func(c *Computer) { c.now = now }
}

func NewComputer(schedules ScheduleSource, busy BusySource, opts ...Option) *Computer {
	c := &Computer{
		schedules: schedules,
		busy:      busy,
		buffer:    DefaultBufferPolicy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Computer) Buffer() BufferPolicy { return c.buffer }

func (c *Computer) Now() time.Time { return c.now() }

// Compute returns the free blocks for q.Date. Storage errors are returned
// wrapped; every other outcome is a Result, possibly empty with a Reason.
func (c *Computer) Compute(ctx context.Context, q Query) (Result, error) {
	res := Result{Date: q.Date, Timezone: q.Location.String(), Blocks: []FreeBlock{}}

	now := c.now()
	if q.Date.Before(clock.At(now, q.Location).Date()) {
		res.Reason = ReasonPast
		return res, nil
	}

	blackouts, err := c.schedules.GetBlackoutDates(ctx, q.AccountID)
	if err != nil {
		return Result{}, fmt.Errorf("load blackout dates: %w", err)
	}
	if blackouts.Contains(q.Date) {
		res.Reason = ReasonBlackout
		return res, nil
	}

	weekly, err := c.schedules.GetWeeklySchedule(ctx, q.AccountID)
	if err != nil {
		return Result{}, fmt.Errorf("load weekly schedule: %w", err)
	}
	day := weekly.Day(q.Date.Weekday())
	if !day.Open() {
		res.Reason = ReasonClosed
		return res, nil
	}

	from, to := c.Window(q.Date, q.Location)
	busy, err := c.busy.ListBusy(ctx, q.AccountID, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("list busy periods: %w", err)
	}

	res.Blocks = FreeBlocks(Day{
		Date:        q.Date,
		Location:    q.Location,
		Schedule:    day,
		Busy:        busy,
		Buffer:      c.buffer,
		MinDuration: q.Duration,
		Now:         now,
	})
	if len(res.Blocks) == 0 {
		res.Blocks = []FreeBlock{}
		res.Reason = ReasonFullyBooked
	}
	return res, nil
}

// Window is the UTC range whose busy periods can affect date once buffered.
func (c *Computer) Window(date clock.Date, loc *time.Location) (from, to time.Time) {
	from = date.Midnight(loc).Add(-c.buffer.After)
	to = date.AddDays(1).Midnight(loc).Add(c.buffer.Before)
	return from.UTC(), to.UTC()
}
