package clock

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	// Full IANA rule data so conversions do not depend on the host zoneinfo.
	_ "time/tzdata"
)

// DefaultTimezone is used when an account has no zone or an unknown one.
const DefaultTimezone = "UTC"

// LocalLayout is the canonical shape of a local wall-clock datetime.
const LocalLayout = "2006-01-02T15:04:05"

var (
	ErrInvalidTimeFormat = errors.New("invalid local datetime format")
	ErrUnknownTimezone   = errors.New("unknown timezone")
)

var localPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2})?$`)

var zoneCache sync.Map // name -> *time.Location

// Normalize converts "YYYY-MM-DD HH:MM[:SS]" or "YYYY-MM-DDTHH:MM[:SS]" into
// the canonical LocalLayout form. Missing seconds default to ":00".
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	if !localPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	if len(s) == len("2006-01-02T15:04") {
		s += ":00"
	}
	// Rejects out-of-range fields such as month 13 or minute 61.
	if _, err := time.Parse(LocalLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	return s, nil
}

// LoadLocation resolves an IANA zone name. Empty names and "Local" are
// rejected: the host zone is never an account's zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, name)
	}
	if loc, ok := zoneCache.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, name)
	}
	zoneCache.Store(name, loc)
	return loc, nil
}

// ToInstant interprets a local wall-clock string in the named zone and
// returns the UTC instant.
//
// Wall times that do not exist (spring-forward gap) or occur twice
// (fall-back overlap) never fail; they resolve the way time.Date does.
// For an overlap that is the first occurrence, i.e. the offset in effect
// before the transition. For a gap the post-transition offset is applied to
// the requested wall time, so the instant lands before the transition.
func ToInstant(local, timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	dt, err := ParseLocal(local, loc)
	if err != nil {
		return time.Time{}, err
	}
	return dt.UTC(), nil
}

// ToLocal formats an instant as canonical local wall-clock time in the zone.
func ToLocal(instant time.Time, timezone string) (string, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	return instant.In(loc).Format(LocalLayout), nil
}
