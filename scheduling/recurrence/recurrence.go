// Package recurrence computes the next occurrence for a recurring schedule.
// It is pure: no clock access, no store access.
package recurrence

import (
	"fmt"
	"time"

	"github.com/contentops/scheduler/scheduling/domain"
)

// NextOccurrence maps (last scheduled time, rule) to the successor time.
// MONTHLY is a fixed +30 days offset, not calendar-month arithmetic; that
// approximation is kept on purpose (see DESIGN.md).
func NextOccurrence(last time.Time, rule domain.Recurrence) (time.Time, error) {
	switch rule {
	case domain.RecurrenceOnce:
		return time.Time{}, fmt.Errorf("recurrence %q has no next occurrence", rule)
	case domain.RecurrenceDaily:
		return last.Add(24 * time.Hour), nil
	case domain.RecurrenceWeekly:
		return last.Add(7 * 24 * time.Hour), nil
	case domain.RecurrenceMonthly:
		return last.Add(30 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unknown recurrence %q", rule)
	}
}

// HasNext reports whether the rule produces successor occurrences.
func HasNext(rule domain.Recurrence) bool {
	return rule == domain.RecurrenceDaily || rule == domain.RecurrenceWeekly || rule == domain.RecurrenceMonthly
}
