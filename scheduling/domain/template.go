package domain

import "time"

// Template holds reusable defaults consumed at schedule-creation time.
// Incrementing UsageCount is the only mutation the engine performs on an
// applied template.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	PublishStrategy  string     `json:"publish_strategy"`
	StrategyConfig   string     `json:"strategy_config,omitempty"`
	Recurrence       Recurrence `json:"recurrence"`
	RecurrenceConfig string     `json:"recurrence_config,omitempty"`

	AutoPublish         bool `json:"auto_publish"`
	AutoExpire          bool `json:"auto_expire"`
	NotifySubscribers   bool `json:"notify_subscribers"`
	NotifyBeforeMinutes int  `json:"notify_before_minutes"`
	Priority            int  `json:"priority"`
	MaxRetry            int  `json:"max_retry"`

	UsageCount int  `json:"usage_count"`
	IsActive   bool `json:"is_active"`
	IsSystem   bool `json:"is_system"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
