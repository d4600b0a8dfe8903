package domain

import (
	"context"
	"time"
)

// NotificationAction tags what a notification is about.
type NotificationAction string

const (
	NotificationActionPublished NotificationAction = "published"
	NotificationActionReminder  NotificationAction = "reminder"
	NotificationActionAlert     NotificationAction = "alert"
)

// ScheduledContentNotice is the payload handed to the NotificationSink.
type ScheduledContentNotice struct {
	ScheduleID  string
	ContentType ContentType
	ContentID   string
	Action      NotificationAction
	When        time.Time
	Actor       string // empty means automatic
	Message     string
}

// NotificationSink receives fire-and-forget notices. Errors are logged by
// the caller and never affect schedule state.
type NotificationSink interface {
	NotifyScheduledContent(ctx context.Context, notice ScheduledContentNotice) error
}

// ContentRepository is what the engine requires of the content subsystem.
type ContentRepository interface {
	Exists(ctx context.Context, ct ContentType, contentID string) (bool, error)
}
