package schedule

import (
	"fmt"

	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

// ValidateWindow parses both ends and requires close to be strictly after open.
func ValidateWindow(opening, closing string) (Window, error) {
	o, err := ParseTimeOfDay(opening)
	if err != nil {
		return Window{}, err
	}
	c, err := ParseTimeOfDay(closing)
	if err != nil {
		return Window{}, err
	}
	if c <= o {
		return Window{}, fmt.Errorf("%w: %s-%s", types.ErrInvalidTimeWindow, opening, closing)
	}
	return Window{Open: o, Close: c}, nil
}

// ValidateHours checks the hour fields of a candidate place. opening and
// closing are the effective flat values after any partial update merge.
func ValidateHours(opening, closing *string, byDay map[string]types.DayHours, closedDays []string) error {
	switch {
	case opening != nil && closing != nil:
		if _, err := ValidateWindow(*opening, *closing); err != nil {
			return fmt.Errorf("openingTime/closingTime: %w", err)
		}
	case opening != nil:
		if _, err := ParseTimeOfDay(*opening); err != nil {
			return fmt.Errorf("openingTime: %w", err)
		}
	case closing != nil:
		if _, err := ParseTimeOfDay(*closing); err != nil {
			return fmt.Errorf("closingTime: %w", err)
		}
	}

	for name, h := range byDay {
		if _, ok := ParseWeekday(name); !ok {
			return fmt.Errorf("%w: unknown weekday %q in scheduleByDay", types.ErrInvalidArgument, name)
		}
		if _, err := ValidateWindow(h.Open, h.Close); err != nil {
			return fmt.Errorf("scheduleByDay.%s: %w", name, err)
		}
	}

	for _, name := range closedDays {
		if _, ok := ParseWeekday(name); !ok {
			return fmt.Errorf("%w: unknown weekday %q in closedDays", types.ErrInvalidArgument, name)
		}
	}
	return nil
}

// MergeFlatHours overlays candidate values on the stored ones. A nil
// candidate keeps the stored value and an empty one clears it.
func MergeFlatHours(storedOpening, storedClosing, candidateOpening, candidateClosing *string) (opening, closing *string) {
	return mergeField(storedOpening, candidateOpening), mergeField(storedClosing, candidateClosing)
}

func mergeField(stored, candidate *string) *string {
	if candidate == nil {
		return stored
	}
	if *candidate == "" {
		return nil
	}
	return candidate
}
