package application_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contentops/scheduler/scheduling/application"
	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPollers(env *testEnv, lock application.LockFunc) *application.Pollers {
	return application.NewPollers(env.scheduler, env.repo, env.sink, env.clk, application.DefaultPollerConfig(), lock)
}

func TestRunDueTickExecutesDueSchedules(t *testing.T) {
	env := newTestEnv(t)
	env.seedBanner(t, "banner-1")
	env.seedBanner(t, "banner-2")

	first := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-1",
		ScheduledTime: env.clk.Now().Add(-time.Minute),
	}, "")
	// Not due yet.
	future := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-2",
		ScheduledTime: env.clk.Now().Add(time.Hour),
	}, "")

	pollers := newTestPollers(env, nil)
	require.NoError(t, pollers.RunDueTick(context.Background()))

	current, err := env.scheduler.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPublished, current.Status)

	current, err = env.scheduler.Get(context.Background(), future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPending, current.Status)
}

func TestRunDueTickSkipsManualSchedules(t *testing.T) {
	env := newTestEnv(t)
	env.seedBanner(t, "banner-1")

	autoPublish := false
	sched := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-1",
		ScheduledTime: env.clk.Now().Add(-time.Minute),
		AutoPublish:   &autoPublish,
	}, "")

	pollers := newTestPollers(env, nil)
	require.NoError(t, pollers.RunDueTick(context.Background()))

	current, err := env.scheduler.Get(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPending, current.Status)
}

func TestRunDueTickAlertsOnPermanentFailure(t *testing.T) {
	env := newTestEnv(t)
	now := env.clk.Now()
	require.NoError(t, env.contents.CreateBanner(context.Background(), bannerFixture("banner-1", now)))
	env.registry.Register(domain.ContentTypeBanner, &stubExecutor{publishErr: errors.New("upstream unavailable")})

	maxRetry := 1
	sched := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-1",
		ScheduledTime: now.Add(-time.Minute),
		MaxRetry:      &maxRetry,
	}, "")

	pollers := newTestPollers(env, nil)
	require.NoError(t, pollers.RunDueTick(context.Background()))

	current, err := env.scheduler.Get(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusFailed, current.Status)

	alerts := env.sink.byAction(domain.NotificationActionAlert)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "failed permanently")
}

func TestRunDueTickHonorsLock(t *testing.T) {
	env := newTestEnv(t)
	exec := env.seedBanner(t, "banner-1")

	env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-1",
		ScheduledTime: env.clk.Now().Add(-time.Minute),
	}, "")

	denied := func(key string, ttl time.Duration) bool { return false }
	pollers := newTestPollers(env, denied)
	require.NoError(t, pollers.RunDueTick(context.Background()))

	// Another node holds the lock: nothing executes here.
	assert.EqualValues(t, 0, atomic.LoadInt64(&exec.publishCalls))
}

func TestRunExpiryTickSkipsVideos(t *testing.T) {
	env := newTestEnv(t)
	env.seedBanner(t, "banner-1")
	env.seedVideo(t, "video-1")
	videoExec := &stubExecutor{publishOK: true, unpublishOK: true}
	env.registry.Register(domain.ContentTypeVideo, videoExec)

	start := env.clk.Now()
	end := start.Add(time.Hour)
	banner := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-1",
		ScheduledTime: start,
		EndTime:       &end,
		AutoExpire:    true,
	}, "")
	video := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeVideo,
		ContentID:     "video-1",
		ScheduledTime: start,
		EndTime:       &end,
		AutoExpire:    true,
	}, "")

	pollers := newTestPollers(env, nil)
	require.NoError(t, pollers.RunDueTick(context.Background()))
	env.clk.Advance(2 * time.Hour)
	require.NoError(t, pollers.RunExpiryTick(context.Background()))

	current, err := env.scheduler.Get(context.Background(), banner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusExpired, current.Status)

	// Videos stay published past end_time.
	current, err = env.scheduler.Get(context.Background(), video.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPublished, current.Status)
	assert.EqualValues(t, 0, atomic.LoadInt64(&videoExec.unpublishCalls))
}

func TestRunReminderTickIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedBanner(t, "banner-1")

	env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:         domain.ContentTypeBanner,
		ContentID:           "banner-1",
		ScheduledTime:       env.clk.Now().Add(15 * time.Minute),
		NotifyBeforeMinutes: 30,
	}, "")

	pollers := newTestPollers(env, nil)
	require.NoError(t, pollers.RunReminderTick(context.Background()))
	require.NoError(t, pollers.RunReminderTick(context.Background()))

	assert.Len(t, env.sink.byAction(domain.NotificationActionReminder), 1)
}

func TestRunCleanupPrunesOldHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := domain.HistoryEntry{
		ID:         uuid.NewString(),
		ScheduleID: "sched-old",
		Action:     domain.HistoryActionExecuted,
		Success:    true,
		ExecutedAt: env.clk.Now().Add(-91 * 24 * time.Hour),
	}
	recent := domain.HistoryEntry{
		ID:         uuid.NewString(),
		ScheduleID: "sched-recent",
		Action:     domain.HistoryActionExecuted,
		Success:    true,
		ExecutedAt: env.clk.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, env.repo.AppendHistory(ctx, old))
	require.NoError(t, env.repo.AppendHistory(ctx, recent))

	pollers := newTestPollers(env, nil)
	require.NoError(t, pollers.RunCleanup(ctx))

	remaining, err := env.repo.ListHistory(ctx, domain.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "sched-recent", remaining[0].ScheduleID)
}
