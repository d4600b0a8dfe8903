package domain

import (
	"context"
	"time"
)

// ScheduleFilter narrows schedule listings. Zero values mean "no filter".
type ScheduleFilter struct {
	ContentType ContentType
	ContentID   string
	Status      ScheduleStatus
	From        time.Time // scheduled_time >= From
	Until       time.Time // scheduled_time < Until
	Limit       int
	Offset      int
}

// ISchedulingRepository is the durable store for schedules, their audit
// history and creation templates.
type ISchedulingRepository interface {
	Init(ctx context.Context) error

	// Schedule CRUD
	CreateSchedule(ctx context.Context, s Schedule) error
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	ListSchedules(ctx context.Context, f ScheduleFilter) ([]Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	// HasPendingForContent reports whether a PENDING row already exists for
	// the given content item. At most one such row may exist at any time.
	HasPendingForContent(ctx context.Context, ct ContentType, contentID string) (bool, error)

	// UpdateScheduleIfStatus persists s only when the stored row still has
	// the expected status, and reports whether the write applied. This is
	// the conditional update closing the double-execution window.
	UpdateScheduleIfStatus(ctx context.Context, s Schedule, expect ScheduleStatus) (bool, error)

	// Poller queries
	ListDueSchedules(ctx context.Context, now time.Time) ([]Schedule, error)
	ListExpiredSchedules(ctx context.Context, now time.Time) ([]Schedule, error)
	ListReminderSchedules(ctx context.Context, now time.Time, horizon time.Duration) ([]Schedule, error)
	// MarkNotificationSent flips notification_sent once; reports whether this
	// call was the one that flipped it.
	MarkNotificationSent(ctx context.Context, id string) (bool, error)

	// History (append-only)
	AppendHistory(ctx context.Context, h HistoryEntry) error
	ListHistory(ctx context.Context, f HistoryFilter) ([]HistoryEntry, error)
	PruneHistory(ctx context.Context, olderThan time.Time) (int64, error)

	// Templates
	CreateTemplate(ctx context.Context, t Template) error
	GetTemplate(ctx context.Context, id string) (Template, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]Template, error)
	UpdateTemplate(ctx context.Context, t Template) error
	DeleteTemplate(ctx context.Context, id string) error
	IncrementTemplateUsage(ctx context.Context, id string) error

	// Aggregations for the statistics engine
	CountSchedulesByStatus(ctx context.Context) (map[ScheduleStatus]int64, error)
	CountSchedulesByContentType(ctx context.Context) (map[ContentType]int64, error)
	CountSchedulesByStrategy(ctx context.Context) (map[string]int64, error)
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
	CountUpcoming(ctx context.Context, now time.Time, horizon time.Duration) (int64, error)
	// ListPublishedBetween returns PUBLISHED (or later EXPIRED) rows whose
	// actual_publish_time falls in [from, to).
	ListPublishedBetween(ctx context.Context, from, to time.Time) ([]Schedule, error)
}
