package recurrence_test

import (
	"testing"
	"time"

	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/contentops/scheduler/scheduling/recurrence"
	"github.com/stretchr/testify/assert"
)

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2026, 3, 15, 20, 30, 0, 0, time.UTC)

	next, err := recurrence.NextOccurrence(base, domain.RecurrenceDaily)
	assert.NoError(t, err)
	assert.Equal(t, base.Add(24*time.Hour), next)

	next, err = recurrence.NextOccurrence(base, domain.RecurrenceWeekly)
	assert.NoError(t, err)
	assert.Equal(t, base.Add(7*24*time.Hour), next)

	next, err = recurrence.NextOccurrence(base, domain.RecurrenceMonthly)
	assert.NoError(t, err)
	// Fixed +30d offset, not calendar-month arithmetic.
	assert.Equal(t, base.Add(30*24*time.Hour), next)
}

func TestNextOccurrenceOnce(t *testing.T) {
	_, err := recurrence.NextOccurrence(time.Now(), domain.RecurrenceOnce)
	assert.Error(t, err)
}

func TestNextOccurrenceUnknownRule(t *testing.T) {
	_, err := recurrence.NextOccurrence(time.Now(), domain.Recurrence("hourly"))
	assert.Error(t, err)
}

func TestHasNext(t *testing.T) {
	assert.False(t, recurrence.HasNext(domain.RecurrenceOnce))
	assert.True(t, recurrence.HasNext(domain.RecurrenceDaily))
	assert.True(t, recurrence.HasNext(domain.RecurrenceWeekly))
	assert.True(t, recurrence.HasNext(domain.RecurrenceMonthly))
}
