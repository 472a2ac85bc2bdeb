package schedule

import (
	"fmt"
	"strings"
	"time"
)

const rangeSeparator = "–"

// Formatter renders schedules as display lines such as
// "Monday: 09:00–18:00" and parses them back.
type Formatter struct {
	DayNames    [7]string // indexed by time.Weekday
	ClosedLabel string
}

var English = Formatter{
	DayNames:    [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	ClosedLabel: "Closed",
}

var Spanish = Formatter{
	DayNames:    [7]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"},
	ClosedLabel: "Cerrado",
}

func (f Formatter) DayName(day time.Weekday) string {
	return f.DayNames[day%7]
}

// Line renders one weekday window.
func (f Formatter) Line(day time.Weekday, w Window) string {
	return fmt.Sprintf("%s: %s%s%s", f.DayName(day), w.Open, rangeSeparator, w.Close)
}

// ClosedLine renders the closed weekdays on one line.
func (f Formatter) ClosedLine(days []time.Weekday) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = f.DayName(d)
	}
	return fmt.Sprintf("%s: %s", f.ClosedLabel, strings.Join(names, ", "))
}

// ParseLine is the inverse of Line. It accepts "-" as well as "–".
func (f Formatter) ParseLine(line string) (time.Weekday, Window, error) {
	name, hours, ok := strings.Cut(strings.TrimSpace(line), ": ")
	if !ok {
		return 0, Window{}, fmt.Errorf("schedule line %q has no day separator", line)
	}
	day, ok := f.lookupDay(name)
	if !ok {
		return 0, Window{}, fmt.Errorf("schedule line %q has unknown day %q", line, name)
	}
	opening, closing, ok := strings.Cut(hours, rangeSeparator)
	if !ok {
		opening, closing, ok = strings.Cut(hours, "-")
	}
	if !ok {
		return 0, Window{}, fmt.Errorf("schedule line %q has no time range", line)
	}
	w, err := ValidateWindow(strings.TrimSpace(opening), strings.TrimSpace(closing))
	if err != nil {
		return 0, Window{}, err
	}
	return day, w, nil
}

func (f Formatter) lookupDay(name string) (time.Weekday, bool) {
	for i, n := range f.DayNames {
		if strings.EqualFold(n, name) {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// Lines renders the week Monday first: one line per day with a window,
// then a single closed line when any day is closed. Days without
// information are left out.
func (f Formatter) Lines(s Schedule) []string {
	var lines []string
	var closed []time.Weekday
	for _, d := range s.Week() {
		switch {
		case d.Source == SourceClosedDay:
			closed = append(closed, d.Day)
		case d.HasWindow:
			lines = append(lines, f.Line(d.Day, d.Window))
		}
	}
	if len(closed) > 0 {
		lines = append(lines, f.ClosedLine(closed))
	}
	return lines
}
