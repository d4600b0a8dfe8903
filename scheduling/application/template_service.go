package application

import (
	"context"
	"fmt"
	"time"

	"github.com/contentops/scheduler/pkg/clock"
	pkgError "github.com/contentops/scheduler/pkg/error"
	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/contentops/scheduler/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TemplateService manages reusable schedule presets and applies them into
// concrete schedules.
type TemplateService struct {
	repo      domain.ISchedulingRepository
	scheduler *SchedulingService
	clk       clock.Clock
}

func NewTemplateService(repo domain.ISchedulingRepository, scheduler *SchedulingService, clk clock.Clock) *TemplateService {
	return &TemplateService{repo: repo, scheduler: scheduler, clk: clk}
}

func (s *TemplateService) Create(ctx context.Context, req domain.CreateTemplateRequest, actor string) (domain.Template, error) {
	if err := validations.ValidateCreateTemplate(ctx, req); err != nil {
		return domain.Template{}, err
	}

	now := s.clk.Now()
	tpl := domain.Template{
		ID:                  uuid.NewString(),
		Name:                req.Name,
		Description:         req.Description,
		PublishStrategy:     req.PublishStrategy,
		StrategyConfig:      req.StrategyConfig,
		Recurrence:          req.Recurrence,
		RecurrenceConfig:    req.RecurrenceConfig,
		AutoPublish:         true,
		AutoExpire:          req.AutoExpire,
		NotifySubscribers:   req.NotifySubscribers,
		NotifyBeforeMinutes: req.NotifyBeforeMinutes,
		Priority:            req.Priority,
		MaxRetry:            defaultMaxRetry,
		IsActive:            true,
		IsSystem:            req.IsSystem,
		CreatedBy:           actor,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.AutoPublish != nil {
		tpl.AutoPublish = *req.AutoPublish
	}
	if req.MaxRetry != nil {
		tpl.MaxRetry = *req.MaxRetry
	}
	if tpl.PublishStrategy == "" {
		tpl.PublishStrategy = defaultPublishStrategy
	}
	if tpl.Recurrence == "" {
		tpl.Recurrence = domain.RecurrenceOnce
	}

	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return domain.Template{}, err
	}
	return tpl, nil
}

func (s *TemplateService) Get(ctx context.Context, id string) (domain.Template, error) {
	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return domain.Template{}, pkgError.NotFoundError(fmt.Sprintf("template %s not found", id))
	}
	return tpl, nil
}

func (s *TemplateService) List(ctx context.Context, activeOnly bool) ([]domain.Template, error) {
	return s.repo.ListTemplates(ctx, activeOnly)
}

func (s *TemplateService) Update(ctx context.Context, tpl domain.Template) (domain.Template, error) {
	current, err := s.Get(ctx, tpl.ID)
	if err != nil {
		return domain.Template{}, err
	}
	if current.IsSystem {
		return domain.Template{}, pkgError.InvalidStateError("system templates cannot be modified")
	}
	tpl.UsageCount = current.UsageCount
	tpl.CreatedAt = current.CreatedAt
	tpl.CreatedBy = current.CreatedBy
	tpl.UpdatedAt = s.clk.Now()
	if err := s.repo.UpdateTemplate(ctx, tpl); err != nil {
		return domain.Template{}, err
	}
	return tpl, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.IsSystem {
		return pkgError.InvalidStateError("system templates cannot be deleted")
	}
	return s.repo.DeleteTemplate(ctx, id)
}

// Apply merges template defaults with overrides into a create-request,
// delegates to the scheduling service and bumps the usage counter.
func (s *TemplateService) Apply(
	ctx context.Context,
	templateID string,
	ct domain.ContentType,
	contentID string,
	scheduledTime time.Time,
	overrides domain.ApplyTemplateOverrides,
	actor string,
) (domain.Schedule, error) {
	tpl, err := s.Get(ctx, templateID)
	if err != nil {
		return domain.Schedule{}, err
	}
	if !tpl.IsActive {
		return domain.Schedule{}, pkgError.ValidationError(fmt.Sprintf("template %s is not active", templateID))
	}

	req := domain.CreateScheduleRequest{
		ContentType:         ct,
		ContentID:           contentID,
		ScheduledTime:       scheduledTime,
		AutoPublish:         &tpl.AutoPublish,
		AutoExpire:          tpl.AutoExpire,
		PublishStrategy:     tpl.PublishStrategy,
		StrategyConfig:      tpl.StrategyConfig,
		Recurrence:          tpl.Recurrence,
		RecurrenceConfig:    tpl.RecurrenceConfig,
		NotifySubscribers:   tpl.NotifySubscribers,
		NotifyBeforeMinutes: tpl.NotifyBeforeMinutes,
		Priority:            tpl.Priority,
		MaxRetry:            &tpl.MaxRetry,
	}
	if overrides.EndTime != nil {
		req.EndTime = overrides.EndTime
	}
	if overrides.Priority != nil {
		req.Priority = *overrides.Priority
	}
	if overrides.NotifySubscribers != nil {
		req.NotifySubscribers = *overrides.NotifySubscribers
	}
	if overrides.NotifyBeforeMinutes != nil {
		req.NotifyBeforeMinutes = *overrides.NotifyBeforeMinutes
	}
	if overrides.AutoExpire != nil {
		req.AutoExpire = *overrides.AutoExpire
	}
	if overrides.ExtraData != nil {
		req.ExtraData = *overrides.ExtraData
	}

	sched, err := s.scheduler.Create(ctx, req, actor)
	if err != nil {
		return domain.Schedule{}, err
	}

	if err := s.repo.IncrementTemplateUsage(ctx, templateID); err != nil {
		logrus.WithError(err).Warnf("[TEMPLATE] Failed to bump usage count for %s", templateID)
	}

	return sched, nil
}
