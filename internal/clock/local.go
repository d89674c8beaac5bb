package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// MinutesPerDay is the length of a nominal local day.
const MinutesPerDay = 24 * 60

// LocalDateTime is an instant together with the zone it was expressed in.
// It replaces loosely typed local datetime strings: the instant is always
// unambiguous and the wall-clock view is always derived from the same zone.
type LocalDateTime struct {
	instant time.Time
	loc     *time.Location
}

// ParseLocal normalizes s and interprets it as wall-clock time in loc.
func ParseLocal(s string, loc *time.Location) (LocalDateTime, error) {
	canonical, err := Normalize(s)
	if err != nil {
		return LocalDateTime{}, err
	}
	t, err := time.ParseInLocation(LocalLayout, canonical, loc)
	if err != nil {
		return LocalDateTime{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return LocalDateTime{instant: t.UTC(), loc: loc}, nil
}

// At expresses an instant in loc.
func At(instant time.Time, loc *time.Location) LocalDateTime {
	return LocalDateTime{instant: instant.UTC(), loc: loc}
}

func (l LocalDateTime) UTC() time.Time { return l.instant }
func (l LocalDateTime) Time() time.Time { return l.instant.In(l.loc) }
func (l LocalDateTime) Location() *time.Location { return l.loc }
func (l LocalDateTime) Add(d time.Duration) LocalDateTime {
	return LocalDateTime{instant: l.instant.Add(d), loc: l.loc}
}

// String returns the canonical local form, e.g. "2026-10-19T14:30:00".
func (l LocalDateTime) String() string {
	return l.Time().Format(LocalLayout)
}

// Date is the local calendar day.
func (l LocalDateTime) Date() Date {
	return DateOf(l.Time())
}

// TimeOfDay is the local wall-clock minute, seconds truncated.
func (l LocalDateTime) TimeOfDay() TimeOfDay {
	t := l.Time()
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Date is a civil calendar day with no zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidTimeFormat, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

// noon avoids any zone or DST edge when doing calendar arithmetic.
func (d Date) noon() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

func (d Date) Weekday() time.Weekday { return d.noon().Weekday() }

func (d Date) AddDays(n int) Date { return DateOf(d.noon().AddDate(0, 0, n)) }

// DaysSince returns d - other in whole days.
func (d Date) DaysSince(other Date) int {
	return int(d.noon().Sub(other.noon()).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.noon().Before(other.noon()) }

// Midnight returns the instant the day starts in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a local wall-clock time in minutes after midnight.
type TimeOfDay int

var timeOfDayPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseTimeOfDay parses "HH:MM" within [00:00, 24:00).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: time of day %q", ErrInvalidTimeFormat, s)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 || mm > 59 {
		return 0, fmt.Errorf("%w: time of day %q", ErrInvalidTimeFormat, s)
	}
	return TimeOfDay(h*60 + mm), nil
}

func (t TimeOfDay) Minutes() int { return int(t) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
