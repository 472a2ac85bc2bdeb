package schedule

import (
	"strings"
	"time"
)

var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Week lists the days in display order, Monday first.
var Week = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// WeekdayName returns the lowercase English name used in stored records.
func WeekdayName(day time.Weekday) string {
	return weekdayNames[day%7]
}

// ParseWeekday maps a stored weekday name, case-insensitively, to a time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range weekdayNames {
		if n == name {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}
