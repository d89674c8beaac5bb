package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/booking-engine/internal/clock"
)

func tod(t *testing.T, s string) clock.TimeOfDay {
	t.Helper()
	v, err := clock.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func block(t *testing.T, start, end string) FreeBlock {
	return FreeBlock{Start: tod(t, start), End: tod(t, end)}
}

type fakeSchedules struct {
	weekly    WeeklySchedule
	blackouts BlackoutSet
	err       error
}

func (f *fakeSchedules) GetWeeklySchedule(_ context.Context, _ uuid.UUID) (WeeklySchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.weekly == nil {
		return DefaultWeeklySchedule(), nil
	}
	return f.weekly, nil
}

func (f *fakeSchedules) GetBlackoutDates(_ context.Context, _ uuid.UUID) (BlackoutSet, error) {
	return f.blackouts, nil
}

type fakeBusy struct {
	byAccount map[uuid.UUID][]Busy
	global    []Busy
	calls     int
	lastFrom  time.Time
	lastTo    time.Time
}

func (f *fakeBusy) ListBusy(_ context.Context, accountID uuid.UUID, from, to time.Time) ([]Busy, error) {
	f.calls++
	f.lastFrom, f.lastTo = from, to
	var out []Busy
	for _, b := range append(append([]Busy{}, f.byAccount[accountID]...), f.global...) {
		if b.Start.Before(to) && b.End.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

var (
	monday = clock.Date{Year: 2026, Month: time.October, Day: 19}
	// a moment well before monday so nothing is trimmed
	sundayBefore = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
)

func at(loc *time.Location, h, m int) time.Time {
	return time.Date(2026, 10, 19, h, m, 0, 0, loc)
}

func TestComputer_SimpleDay(t *testing.T) {
	account := uuid.New()
	busy := &fakeBusy{byAccount: map[uuid.UUID][]Busy{
		account: {{Start: at(time.UTC, 13, 0), End: at(time.UTC, 14, 0)}},
	}}
	c := NewComputer(&fakeSchedules{}, busy, WithNow(func() time.Time { return sundayBefore }))

	res, err := c.Compute(context.Background(), Query{AccountID: account, Location: time.UTC, Date: monday, Duration: time.Hour})
	require.NoError(t, err)

	assert.Equal(t, ReasonOpen, res.Reason)
	assert.Equal(t, []FreeBlock{block(t, "09:00", "12:30"), block(t, "14:30", "17:00")}, res.Blocks)
	assert.Equal(t, at(time.UTC, 0, 0).Add(-30*time.Minute), busy.lastFrom)
	assert.Equal(t, at(time.UTC, 0, 0).Add(24*time.Hour+30*time.Minute), busy.lastTo)
}

func TestComputer_Blackout(t *testing.T) {
	busy := &fakeBusy{}
	schedules := &fakeSchedules{blackouts: BlackoutSet{monday: "holiday"}}
	c := NewComputer(schedules, busy, WithNow(func() time.Time { return sundayBefore }))

	res, err := c.Compute(context.Background(), Query{AccountID: uuid.New(), Location: time.UTC, Date: monday})
	require.NoError(t, err)

	assert.Equal(t, ReasonBlackout, res.Reason)
	assert.Empty(t, res.Blocks)
	assert.NotNil(t, res.Blocks)
	assert.Zero(t, busy.calls, "blackout short-circuits before appointments are read")
}

func TestComputer_ClosedDay(t *testing.T) {
	c := NewComputer(&fakeSchedules{}, &fakeBusy{}, WithNow(func() time.Time { return sundayBefore }))

	res, err := c.Compute(context.Background(), Query{AccountID: uuid.New(), Location: time.UTC, Date: monday.AddDays(5)})
	require.NoError(t, err)
	assert.Equal(t, ReasonClosed, res.Reason)
	assert.Empty(t, res.Blocks)
}

func TestComputer_PastDate(t *testing.T) {
	c := NewComputer(&fakeSchedules{}, &fakeBusy{}, WithNow(func() time.Time { return sundayBefore }))

	res, err := c.Compute(context.Background(), Query{AccountID: uuid.New(), Location: time.UTC, Date: monday.AddDays(-7)})
	require.NoError(t, err)
	assert.Equal(t, ReasonPast, res.Reason)
}

func TestComputer_SystemWideBlockAppliesToEveryAccount(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	busy := &fakeBusy{global: []Busy{{Start: at(time.UTC, 10, 0), End: at(time.UTC, 10, 30)}}}
	c := NewComputer(&fakeSchedules{}, busy, WithNow(func() time.Time { return sundayBefore }))

	want := []FreeBlock{block(t, "09:00", "09:30"), block(t, "11:00", "17:00")}
	for _, account := range []uuid.UUID{a, b} {
		res, err := c.Compute(context.Background(), Query{AccountID: account, Location: time.UTC, Date: monday})
		require.NoError(t, err)
		assert.Equal(t, want, res.Blocks)
	}
}

func TestComputer_StorageErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	c := NewComputer(&fakeSchedules{err: boom}, &fakeBusy{}, WithNow(func() time.Time { return sundayBefore }))

	_, err := c.Compute(context.Background(), Query{AccountID: uuid.New(), Location: time.UTC, Date: monday})
	assert.ErrorIs(t, err, boom)
}

func TestComputer_FullyBooked(t *testing.T) {
	account := uuid.New()
	busy := &fakeBusy{byAccount: map[uuid.UUID][]Busy{
		account: {{Start: at(time.UTC, 9, 0), End: at(time.UTC, 17, 0)}},
	}}
	c := NewComputer(&fakeSchedules{}, busy, WithNow(func() time.Time { return sundayBefore }))

	res, err := c.Compute(context.Background(), Query{AccountID: account, Location: time.UTC, Date: monday})
	require.NoError(t, err)
	assert.Equal(t, ReasonFullyBooked, res.Reason)
	assert.NotNil(t, res.Blocks)
}

func TestFreeBlocks_TodayTrim(t *testing.T) {
	loc, err := clock.LoadLocation("America/New_York")
	require.NoError(t, err)

	day := Day{
		Date:     monday,
		Location: loc,
		Schedule: DefaultWeeklySchedule().Day(time.Monday),
		Buffer:   DefaultBufferPolicy,
		Now:      at(loc, 14, 30),
	}
	assert.Equal(t, []FreeBlock{block(t, "14:30", "17:00")}, FreeBlocks(day))

	day.Now = at(loc, 14, 30).Add(20 * time.Second)
	assert.Equal(t, []FreeBlock{block(t, "14:31", "17:00")}, FreeBlocks(day))

	day.Now = at(loc, 17, 0)
	assert.Empty(t, FreeBlocks(day))
}

func TestFreeBlocks_DropsElapsedBlocksToday(t *testing.T) {
	day := Day{
		Date:     monday,
		Location: time.UTC,
		Schedule: DaySchedule{IsAvailable: true, TimeSlots: []LocalTimeRange{
			{Start: 9 * 60, End: 12 * 60},
			{Start: 13 * 60, End: 17 * 60},
		}},
		Now: at(time.UTC, 12, 15),
	}
	assert.Equal(t, []FreeBlock{block(t, "13:00", "17:00")}, FreeBlocks(day))
}

func TestFreeBlocks_AdjacentDayOverhang(t *testing.T) {
	// Sunday 23:45 for 30 minutes ends 00:15 Monday; with a 30 minute buffer
	// it blocks Monday until 00:45.
	day := Day{
		Date:     monday,
		Location: time.UTC,
		Schedule: DaySchedule{IsAvailable: true, TimeSlots: []LocalTimeRange{{Start: 0, End: 6 * 60}}},
		Busy: []Busy{{
			Start: time.Date(2026, 10, 18, 23, 45, 0, 0, time.UTC),
			End:   time.Date(2026, 10, 19, 0, 15, 0, 0, time.UTC),
		}},
		Buffer: DefaultBufferPolicy,
	}
	assert.Equal(t, []FreeBlock{block(t, "00:45", "06:00")}, FreeBlocks(day))
}

func TestFreeBlocks_ExpressesBusyInAccountZone(t *testing.T) {
	loc, err := clock.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 07:30Z is 13:00 in Kolkata.
	day := Day{
		Date:     monday,
		Location: loc,
		Schedule: DefaultWeeklySchedule().Day(time.Monday),
		Busy:     []Busy{{Start: at(time.UTC, 7, 30), End: at(time.UTC, 8, 30)}},
		Buffer:   DefaultBufferPolicy,
	}
	assert.Equal(t, []FreeBlock{block(t, "09:00", "12:30"), block(t, "14:30", "17:00")}, FreeBlocks(day))
}

func TestFreeBlocks_MinDuration(t *testing.T) {
	day := Day{
		Date:     monday,
		Location: time.UTC,
		Schedule: DefaultWeeklySchedule().Day(time.Monday),
		Busy:     []Busy{{Start: at(time.UTC, 10, 0), End: at(time.UTC, 16, 0)}},
		Buffer:   DefaultBufferPolicy,
	}

	day.MinDuration = 30 * time.Minute
	assert.Equal(t, []FreeBlock{block(t, "09:00", "09:30"), block(t, "16:30", "17:00")}, FreeBlocks(day))

	day.MinDuration = 45 * time.Minute
	assert.Empty(t, FreeBlocks(day))
}

func TestFreeBlocks_Idempotent(t *testing.T) {
	day := Day{
		Date:     monday,
		Location: time.UTC,
		Schedule: DefaultWeeklySchedule().Day(time.Monday),
		Busy:     []Busy{{Start: at(time.UTC, 11, 0), End: at(time.UTC, 12, 0)}},
		Buffer:   DefaultBufferPolicy,
	}
	assert.Equal(t, FreeBlocks(day), FreeBlocks(day))
}

func TestFreeBlock_Fits(t *testing.T) {
	b := block(t, "14:30", "17:00")

	assert.True(t, b.Fits(tod(t, "14:30"), time.Hour))
	assert.True(t, b.Fits(tod(t, "16:00"), time.Hour))
	assert.False(t, b.Fits(tod(t, "16:01"), time.Hour))
	assert.False(t, b.Fits(tod(t, "14:29"), 30*time.Minute))
}

func TestWeeklySchedule_Validate(t *testing.T) {
	require.NoError(t, DefaultWeeklySchedule().Validate())

	bad := []WeeklySchedule{
		{time.Monday: {IsAvailable: false, TimeSlots: []LocalTimeRange{{Start: 60, End: 120}}}},
		{time.Monday: {IsAvailable: true, TimeSlots: []LocalTimeRange{{Start: 120, End: 60}}}},
		{time.Monday: {IsAvailable: true, TimeSlots: []LocalTimeRange{{Start: 60, End: 180}, {Start: 120, End: 240}}}},
		{time.Weekday(9): {IsAvailable: true}},
	}
	for _, w := range bad {
		assert.ErrorIs(t, w.Validate(), ErrInvalidSchedule)
	}
}
