package core

import (
	"fmt"
	"time"
)

// NextOccurrence returns the date a recurring transaction fires next after
// start: one day, seven days, one calendar month, or one calendar year later.
//
// Month and year arithmetic uses time.Time.AddDate, which normalizes
// overflowing days by rolling into the following month: Jan 31 + 1 month is
// Mar 2 in a leap year and Mar 3 otherwise. The roll-over policy is
// deliberate and tested; callers must not re-clamp the result.
func NextOccurrence(start time.Time, interval RecurringInterval) (time.Time, error) {
	switch interval {
	case Daily:
		return start.AddDate(0, 0, 1), nil
	case Weekly:
		return start.AddDate(0, 0, 7), nil
	case Monthly:
		return start.AddDate(0, 1, 0), nil
	case Yearly:
		return start.AddDate(1, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("next occurrence: %w: %q", ErrInvalidInterval, interval)
}
