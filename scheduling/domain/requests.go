package domain

import "time"

// CreateScheduleRequest is the input for schedule creation, from the admin
// layer or from template application.
type CreateScheduleRequest struct {
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`

	ScheduledTime time.Time  `json:"scheduled_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`

	AutoPublish *bool `json:"auto_publish,omitempty"` // default true
	AutoExpire  bool  `json:"auto_expire,omitempty"`

	PublishStrategy string `json:"publish_strategy,omitempty"` // default "immediate"
	StrategyConfig  string `json:"strategy_config,omitempty"`

	Recurrence       Recurrence `json:"recurrence,omitempty"` // default ONCE
	RecurrenceConfig string     `json:"recurrence_config,omitempty"`

	NotifySubscribers   bool `json:"notify_subscribers,omitempty"`
	NotifyBeforeMinutes int  `json:"notify_before_minutes,omitempty"`

	Priority int  `json:"priority,omitempty"`
	MaxRetry *int `json:"max_retry,omitempty"` // default 3

	ExtraData string `json:"extra_data,omitempty"`
}

// UpdateScheduleRequest patches a PENDING schedule. Nil fields are left
// untouched.
type UpdateScheduleRequest struct {
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`

	AutoPublish *bool `json:"auto_publish,omitempty"`
	AutoExpire  *bool `json:"auto_expire,omitempty"`

	PublishStrategy *string `json:"publish_strategy,omitempty"`
	StrategyConfig  *string `json:"strategy_config,omitempty"`

	NotifySubscribers   *bool `json:"notify_subscribers,omitempty"`
	NotifyBeforeMinutes *int  `json:"notify_before_minutes,omitempty"`

	Priority     *int    `json:"priority,omitempty"`
	MaxRetry     *int    `json:"max_retry,omitempty"`
	ConditionMet *bool   `json:"condition_met,omitempty"`
	ExtraData    *string `json:"extra_data,omitempty"`
}

// CreateTemplateRequest creates a reusable schedule preset.
type CreateTemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	PublishStrategy  string     `json:"publish_strategy,omitempty"`
	StrategyConfig   string     `json:"strategy_config,omitempty"`
	Recurrence       Recurrence `json:"recurrence,omitempty"`
	RecurrenceConfig string     `json:"recurrence_config,omitempty"`

	AutoPublish         *bool `json:"auto_publish,omitempty"`
	AutoExpire          bool  `json:"auto_expire,omitempty"`
	NotifySubscribers   bool  `json:"notify_subscribers,omitempty"`
	NotifyBeforeMinutes int   `json:"notify_before_minutes,omitempty"`
	Priority            int   `json:"priority,omitempty"`
	MaxRetry            *int  `json:"max_retry,omitempty"`

	IsSystem bool `json:"is_system,omitempty"`
}

// ApplyTemplateOverrides lets the caller override template defaults at
// application time.
type ApplyTemplateOverrides struct {
	EndTime             *time.Time `json:"end_time,omitempty"`
	Priority            *int       `json:"priority,omitempty"`
	NotifySubscribers   *bool      `json:"notify_subscribers,omitempty"`
	NotifyBeforeMinutes *int       `json:"notify_before_minutes,omitempty"`
	AutoExpire          *bool      `json:"auto_expire,omitempty"`
	ExtraData           *string    `json:"extra_data,omitempty"`
}
