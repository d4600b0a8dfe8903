package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/contentops/scheduler/scheduling/domain"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type scheduleModel struct {
	ID          string `gorm:"primaryKey;column:id"`
	ContentType string `gorm:"column:content_type;not null;index:idx_content,priority:1"`
	ContentID   string `gorm:"column:content_id;not null;index:idx_content,priority:2"`

	ScheduledTime time.Time  `gorm:"column:scheduled_time;not null;index"`
	EndTime       *time.Time `gorm:"column:end_time"`

	Status      string `gorm:"column:status;default:'pending';index"`
	AutoPublish bool   `gorm:"column:auto_publish;default:true"`
	AutoExpire  bool   `gorm:"column:auto_expire;default:false"`

	PublishStrategy string         `gorm:"column:publish_strategy;default:'immediate'"`
	StrategyConfig  sql.NullString `gorm:"column:strategy_config"` // JSON

	Recurrence       string         `gorm:"column:recurrence;default:'once'"`
	RecurrenceConfig sql.NullString `gorm:"column:recurrence_config"` // JSON

	NotifySubscribers   bool `gorm:"column:notify_subscribers;default:false"`
	NotifyBeforeMinutes int  `gorm:"column:notify_before_minutes;default:0"`
	NotificationSent    bool `gorm:"column:notification_sent;default:false"`

	Priority     int            `gorm:"column:priority;default:0"`
	RetryCount   int            `gorm:"column:retry_count;default:0"`
	MaxRetry     int            `gorm:"column:max_retry;default:3"`
	ErrorMessage sql.NullString `gorm:"column:error_message"`

	ConditionMet      bool       `gorm:"column:condition_met;default:true"`
	ActualPublishTime *time.Time `gorm:"column:actual_publish_time"`

	CreatedBy sql.NullString `gorm:"column:created_by"`
	UpdatedBy sql.NullString `gorm:"column:updated_by"`
	ExtraData sql.NullString `gorm:"column:extra_data"` // JSON

	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (scheduleModel) TableName() string { return "content_schedules" }

type historyModel struct {
	ID         string `gorm:"primaryKey;column:id"`
	ScheduleID string `gorm:"column:schedule_id;not null;index"`
	Action     string `gorm:"column:action;not null"`

	StatusBefore sql.NullString `gorm:"column:status_before"`
	StatusAfter  sql.NullString `gorm:"column:status_after"`

	Success bool           `gorm:"column:success"`
	Message sql.NullString `gorm:"column:message"`
	Details sql.NullString `gorm:"column:details"` // JSON

	ExecutedBy      sql.NullString `gorm:"column:executed_by"`
	IsAutomatic     bool           `gorm:"column:is_automatic"`
	ExecutionTimeMs int64          `gorm:"column:execution_time_ms;default:0"`

	ExecutedAt time.Time `gorm:"column:executed_at;not null;index"`
}

func (historyModel) TableName() string { return "schedule_histories" }

type templateModel struct {
	ID          string         `gorm:"primaryKey;column:id"`
	Name        string         `gorm:"column:name;not null;uniqueIndex"`
	Description sql.NullString `gorm:"column:description"`

	PublishStrategy  string         `gorm:"column:publish_strategy;default:'immediate'"`
	StrategyConfig   sql.NullString `gorm:"column:strategy_config"`
	Recurrence       string         `gorm:"column:recurrence;default:'once'"`
	RecurrenceConfig sql.NullString `gorm:"column:recurrence_config"`

	AutoPublish         bool `gorm:"column:auto_publish;default:true"`
	AutoExpire          bool `gorm:"column:auto_expire;default:false"`
	NotifySubscribers   bool `gorm:"column:notify_subscribers;default:false"`
	NotifyBeforeMinutes int  `gorm:"column:notify_before_minutes;default:0"`
	Priority            int  `gorm:"column:priority;default:0"`
	MaxRetry            int  `gorm:"column:max_retry;default:3"`

	UsageCount int  `gorm:"column:usage_count;default:0"`
	IsActive   bool `gorm:"column:is_active;default:true"`
	IsSystem   bool `gorm:"column:is_system;default:false"`

	CreatedBy sql.NullString `gorm:"column:created_by"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

func (templateModel) TableName() string { return "schedule_templates" }

// --- Repository Implementation ---

type SchedulingGormRepository struct {
	db *gorm.DB
}

func NewSchedulingGormRepository(db *gorm.DB) *SchedulingGormRepository {
	return &SchedulingGormRepository{db: db}
}

func (r *SchedulingGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&scheduleModel{},
		&historyModel{},
		&templateModel{},
	)
}

// Schedule CRUD

func (r *SchedulingGormRepository) CreateSchedule(ctx context.Context, s domain.Schedule) error {
	model := toScheduleModel(s)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *SchedulingGormRepository) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	var m scheduleModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Schedule{}, ErrScheduleNotFound
		}
		return domain.Schedule{}, err
	}
	return fromScheduleModel(m), nil
}

func (r *SchedulingGormRepository) ListSchedules(ctx context.Context, f domain.ScheduleFilter) ([]domain.Schedule, error) {
	q := r.db.WithContext(ctx).Model(&scheduleModel{})
	if f.ContentType != "" {
		q = q.Where("content_type = ?", string(f.ContentType))
	}
	if f.ContentID != "" {
		q = q.Where("content_id = ?", f.ContentID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		q = q.Where("scheduled_time >= ?", f.From)
	}
	if !f.Until.IsZero() {
		q = q.Where("scheduled_time < ?", f.Until)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var models []scheduleModel
	if err := q.Order("scheduled_time ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return fromScheduleModels(models), nil
}

func (r *SchedulingGormRepository) DeleteSchedule(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&scheduleModel{}, "id = ?", id).Error
}

func (r *SchedulingGormRepository) HasPendingForContent(ctx context.Context, ct domain.ContentType, contentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Where("content_type = ? AND content_id = ? AND status = ?", string(ct), contentID, string(domain.ScheduleStatusPending)).
		Count(&count).Error
	return count > 0, err
}

// UpdateScheduleIfStatus writes the full row but only when the stored status
// still matches expect. The rows-affected check is what makes concurrent
// execute calls lose cleanly instead of double-publishing.
func (r *SchedulingGormRepository) UpdateScheduleIfStatus(ctx context.Context, s domain.Schedule, expect domain.ScheduleStatus) (bool, error) {
	model := toScheduleModel(s)
	res := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Where("id = ? AND status = ?", s.ID, string(expect)).
		Updates(map[string]interface{}{
			"status":                model.Status,
			"scheduled_time":        model.ScheduledTime,
			"end_time":              model.EndTime,
			"auto_publish":          model.AutoPublish,
			"auto_expire":           model.AutoExpire,
			"publish_strategy":      model.PublishStrategy,
			"strategy_config":       model.StrategyConfig,
			"notify_subscribers":    model.NotifySubscribers,
			"notify_before_minutes": model.NotifyBeforeMinutes,
			"notification_sent":     model.NotificationSent,
			"priority":              model.Priority,
			"retry_count":           model.RetryCount,
			"max_retry":             model.MaxRetry,
			"error_message":         model.ErrorMessage,
			"condition_met":         model.ConditionMet,
			"actual_publish_time":   model.ActualPublishTime,
			"updated_by":            model.UpdatedBy,
			"extra_data":            model.ExtraData,
			"updated_at":            model.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Poller queries

func (r *SchedulingGormRepository) ListDueSchedules(ctx context.Context, now time.Time) ([]domain.Schedule, error) {
	var models []scheduleModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_time <= ? AND condition_met = ? AND auto_publish = ?",
			string(domain.ScheduleStatusPending), now, true, true).
		Order("priority DESC, scheduled_time ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromScheduleModels(models), nil
}

func (r *SchedulingGormRepository) ListExpiredSchedules(ctx context.Context, now time.Time) ([]domain.Schedule, error) {
	var models []scheduleModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time IS NOT NULL AND end_time <= ? AND auto_expire = ?",
			string(domain.ScheduleStatusPublished), now, true).
		Order("end_time ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromScheduleModels(models), nil
}

func (r *SchedulingGormRepository) ListReminderSchedules(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Schedule, error) {
	var models []scheduleModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND notify_before_minutes > 0 AND notification_sent = ? AND scheduled_time > ? AND scheduled_time <= ?",
			string(domain.ScheduleStatusPending), false, now, now.Add(horizon)).
		Order("scheduled_time ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	// The notify window itself is per-row arithmetic; filter here so callers
	// only ever see rows whose reminder is actually owed.
	out := make([]domain.Schedule, 0, len(models))
	for _, m := range models {
		s := fromScheduleModel(m)
		windowStart := s.ScheduledTime.Add(-time.Duration(s.NotifyBeforeMinutes) * time.Minute)
		if !now.Before(windowStart) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SchedulingGormRepository) MarkNotificationSent(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Where("id = ? AND notification_sent = ?", id, false).
		Update("notification_sent", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// History

func (r *SchedulingGormRepository) AppendHistory(ctx context.Context, h domain.HistoryEntry) error {
	model := toHistoryModel(h)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *SchedulingGormRepository) ListHistory(ctx context.Context, f domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	q := r.db.WithContext(ctx).Model(&historyModel{})
	if f.ScheduleID != "" {
		q = q.Where("schedule_id = ?", f.ScheduleID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", string(f.Action))
	}
	if f.Success != nil {
		q = q.Where("success = ?", *f.Success)
	}
	if !f.Since.IsZero() {
		q = q.Where("executed_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("executed_at < ?", f.Until)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var models []historyModel
	if err := q.Order("executed_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.HistoryEntry, len(models))
	for i, m := range models {
		res[i] = fromHistoryModel(m)
	}
	return res, nil
}

func (r *SchedulingGormRepository) PruneHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("executed_at < ?", olderThan).Delete(&historyModel{})
	return res.RowsAffected, res.Error
}

// Templates

func (r *SchedulingGormRepository) CreateTemplate(ctx context.Context, t domain.Template) error {
	model := toTemplateModel(t)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *SchedulingGormRepository) GetTemplate(ctx context.Context, id string) (domain.Template, error) {
	var m templateModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Template{}, ErrTemplateNotFound
		}
		return domain.Template{}, err
	}
	return fromTemplateModel(m), nil
}

func (r *SchedulingGormRepository) ListTemplates(ctx context.Context, activeOnly bool) ([]domain.Template, error) {
	q := r.db.WithContext(ctx).Model(&templateModel{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var models []templateModel
	if err := q.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Template, len(models))
	for i, m := range models {
		res[i] = fromTemplateModel(m)
	}
	return res, nil
}

func (r *SchedulingGormRepository) UpdateTemplate(ctx context.Context, t domain.Template) error {
	model := toTemplateModel(t)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *SchedulingGormRepository) DeleteTemplate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&templateModel{}, "id = ?", id).Error
}

func (r *SchedulingGormRepository) IncrementTemplateUsage(ctx context.Context, id string) error {
	// Single-statement increment so concurrent applies never lose counts.
	return r.db.WithContext(ctx).Model(&templateModel{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

// Aggregations

type statusCountRow struct {
	Key   string
	Count int64
}

func (r *SchedulingGormRepository) CountSchedulesByStatus(ctx context.Context) (map[domain.ScheduleStatus]int64, error) {
	var rows []statusCountRow
	err := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ScheduleStatus]int64, len(rows))
	for _, row := range rows {
		out[domain.ScheduleStatus(row.Key)] = row.Count
	}
	return out, nil
}

func (r *SchedulingGormRepository) CountSchedulesByContentType(ctx context.Context) (map[domain.ContentType]int64, error) {
	var rows []statusCountRow
	err := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Select("content_type AS key, COUNT(*) AS count").
		Group("content_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ContentType]int64, len(rows))
	for _, row := range rows {
		out[domain.ContentType(row.Key)] = row.Count
	}
	return out, nil
}

func (r *SchedulingGormRepository) CountSchedulesByStrategy(ctx context.Context) (map[string]int64, error) {
	var rows []statusCountRow
	err := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Select("publish_strategy AS key, COUNT(*) AS count").
		Group("publish_strategy").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

func (r *SchedulingGormRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Where("status = ? AND scheduled_time < ?", string(domain.ScheduleStatusPending), now).
		Count(&count).Error
	return count, err
}

func (r *SchedulingGormRepository) CountUpcoming(ctx context.Context, now time.Time, horizon time.Duration) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scheduleModel{}).
		Where("status = ? AND scheduled_time >= ? AND scheduled_time < ?",
			string(domain.ScheduleStatusPending), now, now.Add(horizon)).
		Count(&count).Error
	return count, err
}

func (r *SchedulingGormRepository) ListPublishedBetween(ctx context.Context, from, to time.Time) ([]domain.Schedule, error) {
	var models []scheduleModel
	err := r.db.WithContext(ctx).
		Where("actual_publish_time IS NOT NULL AND actual_publish_time >= ? AND actual_publish_time < ?", from, to).
		Order("actual_publish_time ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromScheduleModels(models), nil
}
