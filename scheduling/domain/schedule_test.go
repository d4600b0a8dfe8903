package domain_test

import (
	"testing"

	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, domain.CanTransition(domain.ScheduleStatusPending, domain.ScheduleStatusPublished))
	assert.True(t, domain.CanTransition(domain.ScheduleStatusPending, domain.ScheduleStatusFailed))
	assert.True(t, domain.CanTransition(domain.ScheduleStatusPending, domain.ScheduleStatusCancelled))
	assert.True(t, domain.CanTransition(domain.ScheduleStatusFailed, domain.ScheduleStatusCancelled))
	assert.True(t, domain.CanTransition(domain.ScheduleStatusPublished, domain.ScheduleStatusExpired))

	// No edges lead out of the terminal states, and none lead back to PENDING.
	assert.False(t, domain.CanTransition(domain.ScheduleStatusPublished, domain.ScheduleStatusPending))
	assert.False(t, domain.CanTransition(domain.ScheduleStatusCancelled, domain.ScheduleStatusPending))
	assert.False(t, domain.CanTransition(domain.ScheduleStatusExpired, domain.ScheduleStatusPublished))
	assert.False(t, domain.CanTransition(domain.ScheduleStatusFailed, domain.ScheduleStatusPublished))
	assert.False(t, domain.CanTransition(domain.ScheduleStatusFailed, domain.ScheduleStatusPending))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, domain.ScheduleStatusPending.IsTerminal())
	// FAILED can still be cancelled, so it is not terminal.
	assert.False(t, domain.ScheduleStatusFailed.IsTerminal())
	assert.True(t, domain.ScheduleStatusPublished.IsTerminal())
	assert.True(t, domain.ScheduleStatusCancelled.IsTerminal())
	assert.True(t, domain.ScheduleStatusExpired.IsTerminal())
}
