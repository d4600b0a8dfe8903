package repository

import (
	"database/sql"
	"errors"

	"github.com/contentops/scheduler/scheduling/domain"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrTemplateNotFound = errors.New("template not found")
)

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toScheduleModel(s domain.Schedule) scheduleModel {
	return scheduleModel{
		ID:                  s.ID,
		ContentType:         string(s.ContentType),
		ContentID:           s.ContentID,
		ScheduledTime:       s.ScheduledTime,
		EndTime:             s.EndTime,
		Status:              string(s.Status),
		AutoPublish:         s.AutoPublish,
		AutoExpire:          s.AutoExpire,
		PublishStrategy:     s.PublishStrategy,
		StrategyConfig:      nullString(s.StrategyConfig),
		Recurrence:          string(s.Recurrence),
		RecurrenceConfig:    nullString(s.RecurrenceConfig),
		NotifySubscribers:   s.NotifySubscribers,
		NotifyBeforeMinutes: s.NotifyBeforeMinutes,
		NotificationSent:    s.NotificationSent,
		Priority:            s.Priority,
		RetryCount:          s.RetryCount,
		MaxRetry:            s.MaxRetry,
		ErrorMessage:        nullString(s.ErrorMessage),
		ConditionMet:        s.ConditionMet,
		ActualPublishTime:   s.ActualPublishTime,
		CreatedBy:           nullString(s.CreatedBy),
		UpdatedBy:           nullString(s.UpdatedBy),
		ExtraData:           nullString(s.ExtraData),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func fromScheduleModel(m scheduleModel) domain.Schedule {
	return domain.Schedule{
		ID:                  m.ID,
		ContentType:         domain.ContentType(m.ContentType),
		ContentID:           m.ContentID,
		ScheduledTime:       m.ScheduledTime,
		EndTime:             m.EndTime,
		Status:              domain.ScheduleStatus(m.Status),
		AutoPublish:         m.AutoPublish,
		AutoExpire:          m.AutoExpire,
		PublishStrategy:     m.PublishStrategy,
		StrategyConfig:      m.StrategyConfig.String,
		Recurrence:          domain.Recurrence(m.Recurrence),
		RecurrenceConfig:    m.RecurrenceConfig.String,
		NotifySubscribers:   m.NotifySubscribers,
		NotifyBeforeMinutes: m.NotifyBeforeMinutes,
		NotificationSent:    m.NotificationSent,
		Priority:            m.Priority,
		RetryCount:          m.RetryCount,
		MaxRetry:            m.MaxRetry,
		ErrorMessage:        m.ErrorMessage.String,
		ConditionMet:        m.ConditionMet,
		ActualPublishTime:   m.ActualPublishTime,
		CreatedBy:           m.CreatedBy.String,
		UpdatedBy:           m.UpdatedBy.String,
		ExtraData:           m.ExtraData.String,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func fromScheduleModels(models []scheduleModel) []domain.Schedule {
	res := make([]domain.Schedule, len(models))
	for i, m := range models {
		res[i] = fromScheduleModel(m)
	}
	return res
}

func toHistoryModel(h domain.HistoryEntry) historyModel {
	return historyModel{
		ID:              h.ID,
		ScheduleID:      h.ScheduleID,
		Action:          string(h.Action),
		StatusBefore:    nullString(string(h.StatusBefore)),
		StatusAfter:     nullString(string(h.StatusAfter)),
		Success:         h.Success,
		Message:         nullString(h.Message),
		Details:         nullString(h.Details),
		ExecutedBy:      nullString(h.ExecutedBy),
		IsAutomatic:     h.IsAutomatic,
		ExecutionTimeMs: h.ExecutionTimeMs,
		ExecutedAt:      h.ExecutedAt,
	}
}

func fromHistoryModel(m historyModel) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:              m.ID,
		ScheduleID:      m.ScheduleID,
		Action:          domain.HistoryAction(m.Action),
		StatusBefore:    domain.ScheduleStatus(m.StatusBefore.String),
		StatusAfter:     domain.ScheduleStatus(m.StatusAfter.String),
		Success:         m.Success,
		Message:         m.Message.String,
		Details:         m.Details.String,
		ExecutedBy:      m.ExecutedBy.String,
		IsAutomatic:     m.IsAutomatic,
		ExecutionTimeMs: m.ExecutionTimeMs,
		ExecutedAt:      m.ExecutedAt,
	}
}

func toTemplateModel(t domain.Template) templateModel {
	return templateModel{
		ID:                  t.ID,
		Name:                t.Name,
		Description:         nullString(t.Description),
		PublishStrategy:     t.PublishStrategy,
		StrategyConfig:      nullString(t.StrategyConfig),
		Recurrence:          string(t.Recurrence),
		RecurrenceConfig:    nullString(t.RecurrenceConfig),
		AutoPublish:         t.AutoPublish,
		AutoExpire:          t.AutoExpire,
		NotifySubscribers:   t.NotifySubscribers,
		NotifyBeforeMinutes: t.NotifyBeforeMinutes,
		Priority:            t.Priority,
		MaxRetry:            t.MaxRetry,
		UsageCount:          t.UsageCount,
		IsActive:            t.IsActive,
		IsSystem:            t.IsSystem,
		CreatedBy:           nullString(t.CreatedBy),
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func fromTemplateModel(m templateModel) domain.Template {
	return domain.Template{
		ID:                  m.ID,
		Name:                m.Name,
		Description:         m.Description.String,
		PublishStrategy:     m.PublishStrategy,
		StrategyConfig:      m.StrategyConfig.String,
		Recurrence:          domain.Recurrence(m.Recurrence),
		RecurrenceConfig:    m.RecurrenceConfig.String,
		AutoPublish:         m.AutoPublish,
		AutoExpire:          m.AutoExpire,
		NotifySubscribers:   m.NotifySubscribers,
		NotifyBeforeMinutes: m.NotifyBeforeMinutes,
		Priority:            m.Priority,
		MaxRetry:            m.MaxRetry,
		UsageCount:          m.UsageCount,
		IsActive:            m.IsActive,
		IsSystem:            m.IsSystem,
		CreatedBy:           m.CreatedBy.String,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
