package domain

import "time"

type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusPublished ScheduleStatus = "published"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
	ScheduleStatusExpired   ScheduleStatus = "expired"
)

type ContentType string

const (
	ContentTypeVideo          ContentType = "video"
	ContentTypeBanner         ContentType = "banner"
	ContentTypeAnnouncement   ContentType = "announcement"
	ContentTypeRecommendation ContentType = "recommendation"
)

// AllContentTypes lists every content type the executor registry must cover.
var AllContentTypes = []ContentType{
	ContentTypeVideo,
	ContentTypeBanner,
	ContentTypeAnnouncement,
	ContentTypeRecommendation,
}

type Recurrence string

const (
	RecurrenceOnce    Recurrence = "once"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Schedule is one scheduled publish/expire event for a content item. Each
// recurrence instance is its own row; a published row is never reused.
type Schedule struct {
	ID          string      `json:"id"`
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`

	ScheduledTime time.Time  `json:"scheduled_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`

	Status      ScheduleStatus `json:"status"`
	AutoPublish bool           `json:"auto_publish"`
	AutoExpire  bool           `json:"auto_expire"`

	PublishStrategy string `json:"publish_strategy"`
	StrategyConfig  string `json:"strategy_config,omitempty"` // opaque JSON

	Recurrence       Recurrence `json:"recurrence"`
	RecurrenceConfig string     `json:"recurrence_config,omitempty"` // opaque JSON

	NotifySubscribers   bool `json:"notify_subscribers"`
	NotifyBeforeMinutes int  `json:"notify_before_minutes"`
	NotificationSent    bool `json:"notification_sent"`

	Priority     int    `json:"priority"`
	RetryCount   int    `json:"retry_count"`
	MaxRetry     int    `json:"max_retry"`
	ErrorMessage string `json:"error_message,omitempty"`

	ConditionMet      bool       `json:"condition_met"`
	ActualPublishTime *time.Time `json:"actual_publish_time,omitempty"`

	CreatedBy string `json:"created_by,omitempty"`
	UpdatedBy string `json:"updated_by,omitempty"`
	ExtraData string `json:"extra_data,omitempty"` // opaque JSON

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the row can never transition again. FAILED rows
// are not terminal: they may still be cancelled.
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleStatusPublished || s == ScheduleStatusCancelled || s == ScheduleStatusExpired
}

// ValidStatusTransitions is the full edge set of the schedule state machine.
var ValidStatusTransitions = map[ScheduleStatus][]ScheduleStatus{
	ScheduleStatusPending:   {ScheduleStatusPublished, ScheduleStatusFailed, ScheduleStatusCancelled},
	ScheduleStatusFailed:    {ScheduleStatusCancelled},
	ScheduleStatusPublished: {ScheduleStatusExpired},
}

// CanTransition reports whether from→to is an edge of the state machine.
func CanTransition(from, to ScheduleStatus) bool {
	for _, next := range ValidStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
