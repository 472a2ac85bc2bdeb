// Package schedule decides whether a place is open at a given weekday and
// time of day. It also validates configured opening hours.
//
// All comparisons run on seconds since midnight, so "09:00" and
// "09:00:00" are the same instant. Windows are same-day only; a closing
// time at or before the opening time is rejected rather than read as an
// overnight span.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?$`)

// TimeOfDay is a wall-clock time expressed as seconds since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay without range checks.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS with hour 00-23 and
// minute/second 00-59.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidTimeFormat, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	return NewTimeOfDay(hour, minute, second), nil
}

// At extracts the time of day of t in t's location.
func At(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// String renders HH:MM, or HH:MM:SS when seconds are set.
func (t TimeOfDay) String() string {
	if t.Second() == 0 {
		return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// Normalize parses s and returns its canonical rendering.
func Normalize(s string) (string, error) {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}
