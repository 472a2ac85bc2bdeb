package schedule

import (
	"time"

	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

// Status is the openness classification of a place at an instant.
type Status int

const (
	StatusUnknown Status = iota
	StatusOpen
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Source tells which rule produced a resolution.
type Source int

const (
	SourceNone Source = iota
	SourceClosedDay
	SourceDay
	SourceFlat
)

func (s Source) String() string {
	switch s {
	case SourceClosedDay:
		return "closedDay"
	case SourceDay:
		return "scheduleByDay"
	case SourceFlat:
		return "flatHours"
	default:
		return "none"
	}
}

// Window is a same-day opening interval.
type Window struct {
	Open  TimeOfDay
	Close TimeOfDay
}

// Contains is inclusive on both ends.
func (w Window) Contains(t TimeOfDay) bool {
	return w.Open <= t && t <= w.Close
}

// Overlaps reports whether the two windows share at least one instant.
func (w Window) Overlaps(o Window) bool {
	return w.Open <= o.Close && o.Open <= w.Close
}

// Plan is the hours model of a place: Unscheduled, FlatHours or PerDay.
type Plan interface {
	isPlan()
}

// Unscheduled carries no hours at all.
type Unscheduled struct{}

// FlatHours applies the same window every day.
type FlatHours struct {
	Hours Window
}

// PerDay holds explicit windows for some weekdays. Days without an entry
// fall back to Fallback, which is Unscheduled or FlatHours.
type PerDay struct {
	Days     map[time.Weekday]Window
	Fallback Plan
}

func (Unscheduled) isPlan() {}
func (FlatHours) isPlan()   {}
func (PerDay) isPlan()      {}

// Schedule is a plan plus the weekdays on which the place is fully closed.
type Schedule struct {
	Closed map[time.Weekday]bool
	Plan   Plan
}

// Resolution is the effective rule for one weekday.
type Resolution struct {
	Source    Source
	Window    Window
	HasWindow bool
}

// Resolve applies, in order: closed days, the per-day entry, flat hours.
// Anything else resolves to SourceNone.
func (s Schedule) Resolve(day time.Weekday) Resolution {
	if s.Closed[day] {
		return Resolution{Source: SourceClosedDay}
	}
	w, src, ok := resolvePlan(s.Plan, day)
	return Resolution{Source: src, Window: w, HasWindow: ok}
}

func resolvePlan(p Plan, day time.Weekday) (Window, Source, bool) {
	switch p := p.(type) {
	case FlatHours:
		return p.Hours, SourceFlat, true
	case PerDay:
		if w, ok := p.Days[day]; ok {
			return w, SourceDay, true
		}
		if p.Fallback != nil {
			return resolvePlan(p.Fallback, day)
		}
	}
	return Window{}, SourceNone, false
}

// Status classifies the schedule at the given weekday and time of day.
func (s Schedule) Status(day time.Weekday, t TimeOfDay) Status {
	r := s.Resolve(day)
	switch {
	case r.Source == SourceClosedDay:
		return StatusClosed
	case !r.HasWindow:
		return StatusUnknown
	case r.Window.Contains(t):
		return StatusOpen
	default:
		return StatusClosed
	}
}

// DayResolution is one row of a weekly breakdown.
type DayResolution struct {
	Day time.Weekday
	Resolution
}

// Week resolves every weekday, Monday first.
func (s Schedule) Week() []DayResolution {
	out := make([]DayResolution, 0, len(Week))
	for _, d := range Week {
		out = append(out, DayResolution{Day: d, Resolution: s.Resolve(d)})
	}
	return out
}

// FromPlace builds the schedule of a stored place. Stored values that do
// not parse are ignored so that bad rows read as unknown instead of failing.
func FromPlace(p types.Place) Schedule {
	s := Schedule{Closed: make(map[time.Weekday]bool, len(p.ClosedDays))}
	for _, name := range p.ClosedDays {
		if d, ok := ParseWeekday(name); ok {
			s.Closed[d] = true
		}
	}

	var base Plan = Unscheduled{}
	if p.OpeningTime != nil && p.ClosingTime != nil {
		if w, err := ValidateWindow(*p.OpeningTime, *p.ClosingTime); err == nil {
			base = FlatHours{Hours: w}
		}
	}

	days := make(map[time.Weekday]Window, len(p.ScheduleByDay))
	for name, h := range p.ScheduleByDay {
		d, ok := ParseWeekday(name)
		if !ok {
			continue
		}
		if w, err := ValidateWindow(h.Open, h.Close); err == nil {
			days[d] = w
		}
	}
	if len(days) > 0 {
		s.Plan = PerDay{Days: days, Fallback: base}
	} else {
		s.Plan = base
	}
	return s
}

// IsOpenNow classifies a place at the supplied weekday and time of day.
// The caller owns the clock.
func IsOpenNow(p types.Place, day time.Weekday, t TimeOfDay) Status {
	return FromPlace(p).Status(day, t)
}
