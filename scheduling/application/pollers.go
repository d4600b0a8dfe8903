package application

import (
	"context"
	"fmt"
	"time"

	"github.com/contentops/scheduler/pkg/clock"
	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PollerConfig carries the intervals of the periodic workers.
type PollerConfig struct {
	DueInterval      time.Duration
	ExpiryInterval   time.Duration
	ReminderInterval time.Duration
	HistoryRetention time.Duration
	CleanupCronSpec  string
}

// DefaultPollerConfig mirrors the reference intervals: due 60s, expiry 1h,
// reminder 5m, cleanup daily at 03:00 with 90-day retention.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		DueInterval:      60 * time.Second,
		ExpiryInterval:   time.Hour,
		ReminderInterval: 5 * time.Minute,
		HistoryRetention: 90 * 24 * time.Hour,
		CleanupCronSpec:  "0 3 * * *",
	}
}

// LockFunc acquires a named lock for ttl and reports success. A nil LockFunc
// means single-node operation, no cross-node exclusion.
type LockFunc func(key string, ttl time.Duration) bool

// Pollers drives the scheduling service with three independently-timed
// workers plus a daily history cleanup. Each worker contains its own
// failures: one bad item never stops the timer.
type Pollers struct {
	scheduler   *SchedulingService
	repo        domain.ISchedulingRepository
	notifier    domain.NotificationSink
	clk         clock.Clock
	cfg         PollerConfig
	acquireLock LockFunc
	cron        *cron.Cron
}

func NewPollers(
	scheduler *SchedulingService,
	repo domain.ISchedulingRepository,
	notifier domain.NotificationSink,
	clk clock.Clock,
	cfg PollerConfig,
	acquireLock LockFunc,
) *Pollers {
	return &Pollers{
		scheduler:   scheduler,
		repo:        repo,
		notifier:    notifier,
		clk:         clk,
		cfg:         cfg,
		acquireLock: acquireLock,
	}
}

// Start launches the workers. They stop when ctx is cancelled.
func (p *Pollers) Start(ctx context.Context) error {
	go p.runLoop(ctx, "due", p.cfg.DueInterval, p.RunDueTick)
	go p.runLoop(ctx, "expiry", p.cfg.ExpiryInterval, p.RunExpiryTick)
	go p.runLoop(ctx, "reminder", p.cfg.ReminderInterval, p.RunReminderTick)

	p.cron = cron.New()
	if _, err := p.cron.AddFunc(p.cfg.CleanupCronSpec, func() {
		if err := p.RunCleanup(ctx); err != nil {
			logrus.WithError(err).Error("[POLLER] History cleanup failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup cron spec %q: %w", p.cfg.CleanupCronSpec, err)
	}
	p.cron.Start()

	go func() {
		<-ctx.Done()
		p.cron.Stop()
	}()

	logrus.Infof("[POLLER] Workers started (due=%s expiry=%s reminder=%s cleanup=%q)",
		p.cfg.DueInterval, p.cfg.ExpiryInterval, p.cfg.ReminderInterval, p.cfg.CleanupCronSpec)
	return nil
}

// runLoop fires tick on every interval. Ticks may overlap slow predecessors;
// everything downstream tolerates that via the conditional status updates.
func (p *Pollers) runLoop(ctx context.Context, name string, interval time.Duration, tick func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logrus.Errorf("[POLLER] %s tick panicked: %v", name, r)
					}
				}()
				if err := tick(ctx); err != nil {
					logrus.WithError(err).Errorf("[POLLER] %s tick failed", name)
				}
			}()
		}
	}
}

func (p *Pollers) tryLock(key string, ttl time.Duration) bool {
	if p.acquireLock == nil {
		return true
	}
	return p.acquireLock(key, ttl)
}

// RunDueTick executes every due schedule sequentially in the contractual
// order. On a persistent failure (the row just went FAILED) it raises an
// admin alert in addition to the history row.
func (p *Pollers) RunDueTick(ctx context.Context) error {
	if !p.tryLock("poller:due", p.cfg.DueInterval-time.Second) {
		return nil
	}

	due, err := p.scheduler.GetDueSchedules(ctx)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	logrus.Debugf("[POLLER] Due tick: %d schedule(s)", len(due))
	for _, sched := range due {
		ok, msg, execErr := p.scheduler.Execute(ctx, sched.ID, "", false)
		if execErr != nil {
			logrus.WithError(execErr).Errorf("[POLLER] Execute %s errored", sched.ID)
			continue
		}
		if ok {
			continue
		}

		// Distinguish exhausted retries from transient misses.
		current, getErr := p.scheduler.Get(ctx, sched.ID)
		if getErr == nil && current.Status == domain.ScheduleStatusFailed {
			p.alert(ctx, current, fmt.Sprintf("schedule %s failed permanently after %d attempts: %s",
				current.ID, current.RetryCount, msg))
		}
	}
	return nil
}

// RunExpiryTick unpublishes PUBLISHED schedules past their end_time. Videos
// are skipped: they are never auto-expired.
func (p *Pollers) RunExpiryTick(ctx context.Context) error {
	if !p.tryLock("poller:expiry", time.Minute) {
		return nil
	}

	expired, err := p.scheduler.GetExpiredSchedules(ctx)
	if err != nil {
		return err
	}

	for _, sched := range expired {
		if sched.ContentType == domain.ContentTypeVideo {
			continue
		}
		if _, _, err := p.scheduler.Expire(ctx, sched.ID, ""); err != nil {
			logrus.WithError(err).Errorf("[POLLER] Expire %s errored", sched.ID)
		}
	}
	return nil
}

// RunReminderTick sends owed pre-event reminders, at most once per schedule.
func (p *Pollers) RunReminderTick(ctx context.Context) error {
	if !p.tryLock("poller:reminder", time.Minute) {
		return nil
	}

	pending, err := p.scheduler.GetReminderSchedules(ctx)
	if err != nil {
		return err
	}

	for _, sched := range pending {
		if err := p.scheduler.SendReminder(ctx, sched); err != nil {
			logrus.WithError(err).Errorf("[POLLER] Reminder for %s errored", sched.ID)
		}
	}
	return nil
}

// RunCleanup prunes audit history past the retention window.
func (p *Pollers) RunCleanup(ctx context.Context) error {
	cutoff := p.clk.Now().Add(-p.cfg.HistoryRetention)
	pruned, err := p.repo.PruneHistory(ctx, cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 {
		logrus.Infof("[POLLER] Pruned %s history entries older than %s",
			humanize.Comma(pruned), humanize.Time(cutoff))
	}
	return nil
}

func (p *Pollers) alert(ctx context.Context, sched domain.Schedule, msg string) {
	if p.notifier == nil {
		return
	}
	err := p.notifier.NotifyScheduledContent(ctx, domain.ScheduledContentNotice{
		ScheduleID:  sched.ID,
		ContentType: sched.ContentType,
		ContentID:   sched.ContentID,
		Action:      domain.NotificationActionAlert,
		When:        p.clk.Now(),
		Message:     msg,
	})
	if err != nil {
		logrus.WithError(err).Warn("[POLLER] Admin alert delivery failed")
	}
}
