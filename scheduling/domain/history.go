package domain

import "time"

type HistoryAction string

const (
	HistoryActionCreated   HistoryAction = "created"
	HistoryActionUpdated   HistoryAction = "updated"
	HistoryActionCancelled HistoryAction = "cancelled"
	HistoryActionExecuted  HistoryAction = "executed"
	HistoryActionExpired   HistoryAction = "expired"
	HistoryActionReminded  HistoryAction = "reminded"
	HistoryActionDeleted   HistoryAction = "deleted"
)

// HistoryEntry is one append-only audit record for a schedule. Entries are
// never mutated and are pruned only by the retention cleanup.
type HistoryEntry struct {
	ID         string        `json:"id"`
	ScheduleID string        `json:"schedule_id"`
	Action     HistoryAction `json:"action"`

	StatusBefore ScheduleStatus `json:"status_before,omitempty"`
	StatusAfter  ScheduleStatus `json:"status_after,omitempty"`

	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"` // opaque JSON

	ExecutedBy      string `json:"executed_by,omitempty"` // empty means automatic
	IsAutomatic     bool   `json:"is_automatic"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`

	ExecutedAt time.Time `json:"executed_at"`
}

// HistoryFilter narrows allHistories listings.
type HistoryFilter struct {
	ScheduleID string
	Action     HistoryAction
	Success    *bool
	Since      time.Time
	Until      time.Time
	Limit      int
}
