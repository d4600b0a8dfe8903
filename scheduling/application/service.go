package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/contentops/scheduler/pkg/clock"
	pkgError "github.com/contentops/scheduler/pkg/error"
	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/contentops/scheduler/scheduling/recurrence"
	"github.com/contentops/scheduler/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetry        = 3
	defaultPublishStrategy = "immediate"
	reminderHorizon        = 30 * time.Minute
)

// SchedulingService owns the schedule state machine: creation, mutation
// while pending, execution with bounded retries, expiry and the audit trail.
type SchedulingService struct {
	repo      domain.ISchedulingRepository
	contents  domain.ContentRepository
	executors *domain.ExecutorRegistry
	notifier  domain.NotificationSink
	clk       clock.Clock

	// Per-id locks serialize concurrent mutations (execute, expire, update,
	// cancel) within this process; the conditional status update in the
	// store covers the rest.
	execLocks sync.Map
}

func NewSchedulingService(
	repo domain.ISchedulingRepository,
	contents domain.ContentRepository,
	executors *domain.ExecutorRegistry,
	notifier domain.NotificationSink,
	clk clock.Clock,
) *SchedulingService {
	return &SchedulingService{
		repo:      repo,
		contents:  contents,
		executors: executors,
		notifier:  notifier,
		clk:       clk,
	}
}

func (s *SchedulingService) lockFor(id string) *sync.Mutex {
	mu, _ := s.execLocks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Create validates the request and inserts a PENDING schedule.
func (s *SchedulingService) Create(ctx context.Context, req domain.CreateScheduleRequest, actor string) (domain.Schedule, error) {
	if err := validations.ValidateCreateSchedule(ctx, req); err != nil {
		return domain.Schedule{}, err
	}

	exists, err := s.contents.Exists(ctx, req.ContentType, req.ContentID)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("content lookup failed: %w", err)
	}
	if !exists {
		return domain.Schedule{}, pkgError.ValidationError(fmt.Sprintf("%s %s does not exist", req.ContentType, req.ContentID))
	}

	hasPending, err := s.repo.HasPendingForContent(ctx, req.ContentType, req.ContentID)
	if err != nil {
		return domain.Schedule{}, err
	}
	if hasPending {
		return domain.Schedule{}, pkgError.ValidationError(fmt.Sprintf("a pending schedule already exists for %s %s", req.ContentType, req.ContentID))
	}

	now := s.clk.Now()
	sched := domain.Schedule{
		ID:                  uuid.NewString(),
		ContentType:         req.ContentType,
		ContentID:           req.ContentID,
		ScheduledTime:       req.ScheduledTime.UTC(),
		EndTime:             req.EndTime,
		Status:              domain.ScheduleStatusPending,
		AutoPublish:         true,
		AutoExpire:          req.AutoExpire,
		PublishStrategy:     req.PublishStrategy,
		StrategyConfig:      req.StrategyConfig,
		Recurrence:          req.Recurrence,
		RecurrenceConfig:    req.RecurrenceConfig,
		NotifySubscribers:   req.NotifySubscribers,
		NotifyBeforeMinutes: req.NotifyBeforeMinutes,
		Priority:            req.Priority,
		MaxRetry:            defaultMaxRetry,
		ConditionMet:        true,
		ExtraData:           req.ExtraData,
		CreatedBy:           actor,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.AutoPublish != nil {
		sched.AutoPublish = *req.AutoPublish
	}
	if req.MaxRetry != nil {
		sched.MaxRetry = *req.MaxRetry
	}
	if sched.PublishStrategy == "" {
		sched.PublishStrategy = defaultPublishStrategy
	}
	if sched.Recurrence == "" {
		sched.Recurrence = domain.RecurrenceOnce
	}

	if err := s.repo.CreateSchedule(ctx, sched); err != nil {
		return domain.Schedule{}, err
	}

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:  sched.ID,
		Action:      domain.HistoryActionCreated,
		StatusAfter: domain.ScheduleStatusPending,
		Success:     true,
		Message:     fmt.Sprintf("schedule created for %s %s", sched.ContentType, sched.ContentID),
		ExecutedBy:  actor,
		IsAutomatic: actor == "",
	})

	return sched, nil
}

func (s *SchedulingService) Get(ctx context.Context, id string) (domain.Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return domain.Schedule{}, pkgError.NotFoundError(fmt.Sprintf("schedule %s not found", id))
	}
	return sched, nil
}

func (s *SchedulingService) List(ctx context.Context, f domain.ScheduleFilter) ([]domain.Schedule, error) {
	return s.repo.ListSchedules(ctx, f)
}

// Update patches a schedule. Only PENDING rows are mutable.
func (s *SchedulingService) Update(ctx context.Context, id string, req domain.UpdateScheduleRequest, actor string) (domain.Schedule, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sched, err := s.Get(ctx, id)
	if err != nil {
		return domain.Schedule{}, err
	}
	if sched.Status != domain.ScheduleStatusPending {
		return domain.Schedule{}, pkgError.InvalidStateError(fmt.Sprintf("cannot update schedule in status %s", sched.Status))
	}

	if req.ScheduledTime != nil {
		sched.ScheduledTime = req.ScheduledTime.UTC()
	}
	if req.EndTime != nil {
		sched.EndTime = req.EndTime
	}
	if req.AutoPublish != nil {
		sched.AutoPublish = *req.AutoPublish
	}
	if req.AutoExpire != nil {
		sched.AutoExpire = *req.AutoExpire
	}
	if req.PublishStrategy != nil {
		sched.PublishStrategy = *req.PublishStrategy
	}
	if req.StrategyConfig != nil {
		sched.StrategyConfig = *req.StrategyConfig
	}
	if req.NotifySubscribers != nil {
		sched.NotifySubscribers = *req.NotifySubscribers
	}
	if req.NotifyBeforeMinutes != nil {
		sched.NotifyBeforeMinutes = *req.NotifyBeforeMinutes
	}
	if req.Priority != nil {
		sched.Priority = *req.Priority
	}
	if req.MaxRetry != nil {
		if *req.MaxRetry < 0 {
			return domain.Schedule{}, pkgError.ValidationError("max_retry must not be negative")
		}
		if *req.MaxRetry < sched.RetryCount {
			return domain.Schedule{}, pkgError.ValidationError(fmt.Sprintf("max_retry must not be below retry_count (%d)", sched.RetryCount))
		}
		sched.MaxRetry = *req.MaxRetry
	}
	if req.ConditionMet != nil {
		sched.ConditionMet = *req.ConditionMet
	}
	if req.ExtraData != nil {
		sched.ExtraData = *req.ExtraData
	}

	if sched.EndTime != nil && !sched.EndTime.After(sched.ScheduledTime) {
		return domain.Schedule{}, pkgError.ValidationError("end_time must be after scheduled_time")
	}

	sched.UpdatedBy = actor
	sched.UpdatedAt = s.clk.Now()
	applied, err := s.repo.UpdateScheduleIfStatus(ctx, sched, domain.ScheduleStatusPending)
	if err != nil {
		return domain.Schedule{}, err
	}
	if !applied {
		return domain.Schedule{}, pkgError.InvalidStateError("schedule changed state while updating")
	}

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:   sched.ID,
		Action:       domain.HistoryActionUpdated,
		StatusBefore: domain.ScheduleStatusPending,
		StatusAfter:  domain.ScheduleStatusPending,
		Success:      true,
		Message:      "schedule updated",
		ExecutedBy:   actor,
		IsAutomatic:  actor == "",
	})

	return sched, nil
}

// Cancel is allowed from PENDING and FAILED.
func (s *SchedulingService) Cancel(ctx context.Context, id, actor string) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sched, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sched.Status != domain.ScheduleStatusPending && sched.Status != domain.ScheduleStatusFailed {
		return pkgError.InvalidStateError(fmt.Sprintf("cannot cancel schedule in status %s", sched.Status))
	}

	before := sched.Status
	sched.Status = domain.ScheduleStatusCancelled
	sched.UpdatedBy = actor
	sched.UpdatedAt = s.clk.Now()

	applied, err := s.repo.UpdateScheduleIfStatus(ctx, sched, before)
	if err != nil {
		return err
	}
	if !applied {
		return pkgError.InvalidStateError("schedule changed state while cancelling")
	}

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:   sched.ID,
		Action:       domain.HistoryActionCancelled,
		StatusBefore: before,
		StatusAfter:  domain.ScheduleStatusCancelled,
		Success:      true,
		Message:      "schedule cancelled",
		ExecutedBy:   actor,
		IsAutomatic:  actor == "",
	})
	return nil
}

// Delete removes the row regardless of status. Administrative action only.
func (s *SchedulingService) Delete(ctx context.Context, id, actor string) error {
	sched, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:   sched.ID,
		Action:       domain.HistoryActionDeleted,
		StatusBefore: sched.Status,
		Success:      true,
		Message:      "schedule deleted",
		ExecutedBy:   actor,
		IsAutomatic:  actor == "",
	})

	return s.repo.DeleteSchedule(ctx, id)
}

// Execute performs the PENDING→{PUBLISHED,FAILED} transition. The returned
// bool reports whether the content was published; the string carries the
// operator-facing outcome message. A non-PENDING row is a no-op.
func (s *SchedulingService) Execute(ctx context.Context, id, actor string, force bool) (bool, string, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return false, "", pkgError.NotFoundError(fmt.Sprintf("schedule %s not found", id))
	}

	// Idempotency guard: only the caller that still observes PENDING acts.
	if sched.Status != domain.ScheduleStatusPending {
		return false, fmt.Sprintf("schedule is not pending (status=%s)", sched.Status), nil
	}
	if !force && !sched.ConditionMet {
		return false, "condition not met", nil
	}

	executor, err := s.executors.Get(sched.ContentType)
	if err != nil {
		return s.recordFailure(ctx, sched, actor, err.Error())
	}

	started := s.clk.Now()
	ok, execErr := executor.Publish(ctx, sched.ContentID)
	elapsed := s.clk.Now().Sub(started).Milliseconds()

	if execErr != nil || !ok {
		msg := "executor reported failure"
		if execErr != nil {
			msg = execErr.Error()
		}
		return s.recordFailureTimed(ctx, sched, actor, msg, elapsed)
	}

	now := s.clk.Now()
	sched.Status = domain.ScheduleStatusPublished
	sched.ActualPublishTime = &now
	sched.UpdatedBy = actor
	sched.UpdatedAt = now

	applied, err := s.repo.UpdateScheduleIfStatus(ctx, sched, domain.ScheduleStatusPending)
	if err != nil {
		return false, "", err
	}
	if !applied {
		// A concurrent caller won the transition after our read.
		return false, "schedule is not pending (status changed concurrently)", nil
	}

	if recurrence.HasNext(sched.Recurrence) {
		if err := s.spawnSuccessor(ctx, sched); err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Failed to spawn successor for %s", sched.ID)
		}
	}

	if sched.NotifySubscribers {
		s.notifyAsync(ctx, domain.ScheduledContentNotice{
			ScheduleID:  sched.ID,
			ContentType: sched.ContentType,
			ContentID:   sched.ContentID,
			Action:      domain.NotificationActionPublished,
			When:        now,
			Actor:       actor,
			Message:     fmt.Sprintf("%s %s published", sched.ContentType, sched.ContentID),
		})
	}

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:      sched.ID,
		Action:          domain.HistoryActionExecuted,
		StatusBefore:    domain.ScheduleStatusPending,
		StatusAfter:     domain.ScheduleStatusPublished,
		Success:         true,
		Message:         "content published",
		ExecutedBy:      actor,
		IsAutomatic:     actor == "",
		ExecutionTimeMs: elapsed,
	})

	return true, "content published", nil
}

func (s *SchedulingService) recordFailure(ctx context.Context, sched domain.Schedule, actor, msg string) (bool, string, error) {
	return s.recordFailureTimed(ctx, sched, actor, msg, 0)
}

// recordFailureTimed increments the retry counter and flips the row to
// FAILED once retry_count reaches max_retry. The row stays PENDING (and
// eligible for the very next tick, no backoff) until then.
func (s *SchedulingService) recordFailureTimed(ctx context.Context, sched domain.Schedule, actor, msg string, elapsed int64) (bool, string, error) {
	before := sched.Status
	sched.RetryCount++
	if sched.RetryCount >= sched.MaxRetry {
		sched.Status = domain.ScheduleStatusFailed
		sched.ErrorMessage = msg
	}
	sched.UpdatedBy = actor
	sched.UpdatedAt = s.clk.Now()

	applied, err := s.repo.UpdateScheduleIfStatus(ctx, sched, domain.ScheduleStatusPending)
	if err != nil {
		return false, "", err
	}
	if !applied {
		return false, "schedule is not pending (status changed concurrently)", nil
	}

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:      sched.ID,
		Action:          domain.HistoryActionExecuted,
		StatusBefore:    before,
		StatusAfter:     sched.Status,
		Success:         false,
		Message:         fmt.Sprintf("execution failed (attempt %d/%d): %s", sched.RetryCount, sched.MaxRetry, msg),
		ExecutedBy:      actor,
		IsAutomatic:     actor == "",
		ExecutionTimeMs: elapsed,
	})

	return false, msg, nil
}

// spawnSuccessor inserts the next recurrence instance as a brand-new PENDING
// row. The published row is never reused.
func (s *SchedulingService) spawnSuccessor(ctx context.Context, prev domain.Schedule) error {
	next, err := recurrence.NextOccurrence(prev.ScheduledTime, prev.Recurrence)
	if err != nil {
		return err
	}

	now := s.clk.Now()
	successor := domain.Schedule{
		ID:                  uuid.NewString(),
		ContentType:         prev.ContentType,
		ContentID:           prev.ContentID,
		ScheduledTime:       next,
		Status:              domain.ScheduleStatusPending,
		AutoPublish:         prev.AutoPublish,
		AutoExpire:          prev.AutoExpire,
		PublishStrategy:     prev.PublishStrategy,
		StrategyConfig:      prev.StrategyConfig,
		Recurrence:          prev.Recurrence,
		RecurrenceConfig:    prev.RecurrenceConfig,
		NotifySubscribers:   prev.NotifySubscribers,
		NotifyBeforeMinutes: prev.NotifyBeforeMinutes,
		Priority:            prev.Priority,
		MaxRetry:            prev.MaxRetry,
		ConditionMet:        true,
		ExtraData:           prev.ExtraData,
		CreatedBy:           prev.CreatedBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if prev.EndTime != nil {
		// Keep the visibility window length for the next instance.
		window := prev.EndTime.Sub(prev.ScheduledTime)
		end := next.Add(window)
		successor.EndTime = &end
	}

	if err := s.repo.CreateSchedule(ctx, successor); err != nil {
		return err
	}

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:  successor.ID,
		Action:      domain.HistoryActionCreated,
		StatusAfter: domain.ScheduleStatusPending,
		Success:     true,
		Message:     fmt.Sprintf("spawned by %s recurrence of %s", prev.Recurrence, prev.ID),
		IsAutomatic: true,
	})
	return nil
}

// Expire performs the PUBLISHED→EXPIRED transition via the executor's
// unpublish action.
func (s *SchedulingService) Expire(ctx context.Context, id, actor string) (bool, string, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return false, "", pkgError.NotFoundError(fmt.Sprintf("schedule %s not found", id))
	}
	if sched.Status != domain.ScheduleStatusPublished {
		return false, fmt.Sprintf("schedule is not published (status=%s)", sched.Status), nil
	}

	executor, err := s.executors.Get(sched.ContentType)
	if err != nil {
		return false, "", err
	}

	started := s.clk.Now()
	ok, execErr := executor.Unpublish(ctx, sched.ContentID)
	elapsed := s.clk.Now().Sub(started).Milliseconds()

	if execErr != nil || !ok {
		msg := "unpublish not supported or failed"
		if execErr != nil {
			msg = execErr.Error()
		}
		s.appendHistory(ctx, domain.HistoryEntry{
			ScheduleID:      sched.ID,
			Action:          domain.HistoryActionExpired,
			StatusBefore:    domain.ScheduleStatusPublished,
			StatusAfter:     domain.ScheduleStatusPublished,
			Success:         false,
			Message:         msg,
			ExecutedBy:      actor,
			IsAutomatic:     actor == "",
			ExecutionTimeMs: elapsed,
		})
		return false, msg, nil
	}

	sched.Status = domain.ScheduleStatusExpired
	sched.UpdatedBy = actor
	sched.UpdatedAt = s.clk.Now()

	applied, err := s.repo.UpdateScheduleIfStatus(ctx, sched, domain.ScheduleStatusPublished)
	if err != nil {
		return false, "", err
	}
	if !applied {
		return false, "schedule is not published (status changed concurrently)", nil
	}

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:      sched.ID,
		Action:          domain.HistoryActionExpired,
		StatusBefore:    domain.ScheduleStatusPublished,
		StatusAfter:     domain.ScheduleStatusExpired,
		Success:         true,
		Message:         "content unpublished",
		ExecutedBy:      actor,
		IsAutomatic:     actor == "",
		ExecutionTimeMs: elapsed,
	})

	return true, "content unpublished", nil
}

// GetDueSchedules returns PENDING, condition-met, auto-publish rows whose
// time has come, ordered by priority DESC then scheduled_time ASC. The
// ordering is a contract relied on by operators, not an implementation
// detail.
func (s *SchedulingService) GetDueSchedules(ctx context.Context) ([]domain.Schedule, error) {
	return s.repo.ListDueSchedules(ctx, s.clk.Now())
}

func (s *SchedulingService) GetExpiredSchedules(ctx context.Context) ([]domain.Schedule, error) {
	return s.repo.ListExpiredSchedules(ctx, s.clk.Now())
}

// GetReminderSchedules returns rows whose pre-event reminder is owed.
func (s *SchedulingService) GetReminderSchedules(ctx context.Context) ([]domain.Schedule, error) {
	return s.repo.ListReminderSchedules(ctx, s.clk.Now(), reminderHorizon)
}

// SendReminder delivers the pre-event notification at most once per row.
func (s *SchedulingService) SendReminder(ctx context.Context, sched domain.Schedule) error {
	claimed, err := s.repo.MarkNotificationSent(ctx, sched.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil // another tick already sent it
	}

	s.notifyAsync(ctx, domain.ScheduledContentNotice{
		ScheduleID:  sched.ID,
		ContentType: sched.ContentType,
		ContentID:   sched.ContentID,
		Action:      domain.NotificationActionReminder,
		When:        sched.ScheduledTime,
		Message:     fmt.Sprintf("%s %s publishes at %s", sched.ContentType, sched.ContentID, sched.ScheduledTime.Format(time.RFC3339)),
	})

	s.appendHistory(ctx, domain.HistoryEntry{
		ScheduleID:   sched.ID,
		Action:       domain.HistoryActionReminded,
		StatusBefore: domain.ScheduleStatusPending,
		StatusAfter:  domain.ScheduleStatusPending,
		Success:      true,
		Message:      "reminder sent",
		IsAutomatic:  true,
	})
	return nil
}

func (s *SchedulingService) History(ctx context.Context, scheduleID string) ([]domain.HistoryEntry, error) {
	return s.repo.ListHistory(ctx, domain.HistoryFilter{ScheduleID: scheduleID})
}

func (s *SchedulingService) AllHistories(ctx context.Context, f domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	return s.repo.ListHistory(ctx, f)
}

// notifyAsync sends a notice without letting sink failures touch schedule
// state.
func (s *SchedulingService) notifyAsync(ctx context.Context, n domain.ScheduledContentNotice) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyScheduledContent(ctx, n); err != nil {
		logrus.WithError(err).Warnf("[SCHEDULER] Notification failed for schedule %s", n.ScheduleID)
	}
}

func (s *SchedulingService) appendHistory(ctx context.Context, h domain.HistoryEntry) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.ExecutedAt.IsZero() {
		h.ExecutedAt = s.clk.Now()
	}
	if err := s.repo.AppendHistory(ctx, h); err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Failed to append history for schedule %s", h.ScheduleID)
	}
}
