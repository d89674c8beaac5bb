package availability

import (
	"time"

	"github.com/hackgods/booking-engine/internal/clock"
	"github.com/hackgods/booking-engine/internal/interval"
)

// Busy is an occupied period, typically an active appointment.
type Busy struct {
	Start time.Time
	End   time.Time
}

// FreeBlock is a bookable local time range on one day.
type FreeBlock struct {
	Start clock.TimeOfDay `json:"start"`
	End   clock.TimeOfDay `json:"end"`
}

// Fits reports whether an appointment starting at start for d lies inside
// the block. Presence of a block alone does not mean a start time fits.
func (b FreeBlock) Fits(start clock.TimeOfDay, d time.Duration) bool {
	end := int(start) + ceilMinutes(d)
	return start >= b.Start && end <= int(b.End)
}

// Day is everything needed to compute one date's free blocks.
type Day struct {
	Date        clock.Date
	Location    *time.Location
	Schedule    DaySchedule
	Busy        []Busy
	Buffer      BufferPolicy
	MinDuration time.Duration
	Now         time.Time
}

// FreeBlocks subtracts buffered busy periods from the day's business hours.
// It is a pure function of its input.
//
// Busy periods are placed on the day in wall-clock minutes relative to the
// date's local midnight, so periods on adjacent days land below 0 or past
// 1440 and only their buffered overhang reaches the day. When Date is today
// in Location, elapsed blocks are dropped and a block in progress starts at
// Now, rounded up to the next whole minute.
func FreeBlocks(d Day) []FreeBlock {
	if !d.Schedule.Open() {
		return nil
	}

	base := make([]interval.Interval, 0, len(d.Schedule.TimeSlots))
	for _, r := range d.Schedule.TimeSlots {
		base = append(base, interval.New(int(r.Start), int(r.End)))
	}

	before := ceilMinutes(d.Buffer.Before)
	after := ceilMinutes(d.Buffer.After)
	cuts := make([]interval.Interval, 0, len(d.Busy))
	for _, b := range d.Busy {
		iv := interval.New(
			minutesFrom(d.Date, b.Start, d.Location, false),
			minutesFrom(d.Date, b.End, d.Location, true),
		)
		cuts = append(cuts, interval.Buffer(iv, before, after))
	}

	free := interval.Subtract(base, cuts)

	if !d.Now.IsZero() {
		now := clock.At(d.Now, d.Location)
		switch today := now.Date(); {
		case d.Date.Before(today):
			return nil
		case d.Date == today:
			free = trimElapsed(free, nowMinute(now))
		}
	}

	minLen := ceilMinutes(d.MinDuration)
	blocks := make([]FreeBlock, 0, len(free))
	for _, iv := range free {
		if iv.Len() < minLen {
			continue
		}
		blocks = append(blocks, FreeBlock{Start: clock.TimeOfDay(iv.Start), End: clock.TimeOfDay(iv.End)})
	}
	return blocks
}

func trimElapsed(free []interval.Interval, now int) []interval.Interval {
	out := free[:0]
	for _, iv := range free {
		if iv.End <= now {
			continue
		}
		if iv.Start < now {
			iv.Start = now
		}
		out = append(out, iv)
	}
	return out
}

func nowMinute(now clock.LocalDateTime) int {
	t := now.Time()
	m := t.Hour()*60 + t.Minute()
	if t.Second() > 0 || t.Nanosecond() > 0 {
		m++
	}
	return m
}

// minutesFrom returns t's local wall-clock minute counted from date's
// midnight. roundUp rounds partial minutes up instead of down.
func minutesFrom(date clock.Date, t time.Time, loc *time.Location, roundUp bool) int {
	lt := t.In(loc)
	m := clock.DateOf(lt).DaysSince(date)*clock.MinutesPerDay + lt.Hour()*60 + lt.Minute()
	if roundUp && (lt.Second() > 0 || lt.Nanosecond() > 0) {
		m++
	}
	return m
}

func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}
