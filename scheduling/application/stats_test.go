package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contentops/scheduler/scheduling/application"
	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) executeNow(t *testing.T, id string) {
	t.Helper()
	ok, msg, err := env.scheduler.Execute(context.Background(), id, "", false)
	require.NoError(t, err)
	require.True(t, ok, "execute did not publish: %s", msg)
}

func TestStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedBanner(t, "banner-1")
	env.seedBanner(t, "banner-2")
	env.seedBanner(t, "banner-3")

	published := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-1",
		ScheduledTime: env.clk.Now(),
	}, "alice")
	env.executeNow(t, published.ID)

	// One overdue, one upcoming within 24h.
	env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-2",
		ScheduledTime: env.clk.Now().Add(-2 * time.Hour),
	}, "alice")
	env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-3",
		ScheduledTime: env.clk.Now().Add(6 * time.Hour),
	}, "alice")

	env.clk.Advance(time.Minute)
	stats, err := env.stats.Statistics(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.ByStatus[domain.ScheduleStatusPending])
	assert.EqualValues(t, 1, stats.ByStatus[domain.ScheduleStatusPublished])
	assert.EqualValues(t, 3, stats.ByContentType[domain.ContentTypeBanner])
	assert.EqualValues(t, 3, stats.ByStrategy["immediate"])
	assert.EqualValues(t, 2, stats.PendingCount)
	assert.EqualValues(t, 1, stats.PublishedToday)
	assert.EqualValues(t, 1, stats.PublishedThisWeek)
	assert.EqualValues(t, 1, stats.OverdueCount)
	assert.EqualValues(t, 1, stats.Upcoming24hCount)
}

func TestCalendar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedBanner(t, "banner-1")
	env.seedBanner(t, "banner-2")
	env.seedBanner(t, "banner-3")

	pending := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-1",
		ScheduledTime: time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC),
	}, "alice")
	cancelled := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-2",
		ScheduledTime: time.Date(2026, 6, 20, 18, 0, 0, 0, time.UTC),
	}, "alice")
	require.NoError(t, env.scheduler.Cancel(ctx, cancelled.ID, "alice"))
	// Next month, outside the requested view.
	env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-3",
		ScheduledTime: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
	}, "alice")

	events, err := env.stats.Calendar(ctx, 2026, time.June)
	require.NoError(t, err)
	require.Len(t, events, 2)

	byID := map[string]application.CalendarEvent{}
	for _, ev := range events {
		byID[ev.ScheduleID] = ev
	}
	assert.Equal(t, "#faad14", byID[pending.ID].Color)
	assert.Equal(t, "#d9d9d9", byID[cancelled.ID].Color)
}

func TestSuggestedTimesWithoutHistory(t *testing.T) {
	env := newTestEnv(t)

	suggestions, err := env.stats.SuggestedTimes(context.Background(), domain.ContentTypeVideo)
	require.NoError(t, err)

	require.Len(t, suggestions, 3)
	assert.Equal(t, 20, suggestions[0].Hour)
	assert.Equal(t, 95.0, suggestions[0].Score)
	assert.Equal(t, 12, suggestions[1].Hour)
	assert.Equal(t, 90.0, suggestions[1].Score)
	assert.Equal(t, 21, suggestions[2].Hour)
	assert.Equal(t, 85.0, suggestions[2].Score)
}

func TestSuggestedTimesFromHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seedBanner(t, "banner-1")
	env.seedBanner(t, "banner-2")
	env.seedBanner(t, "banner-3")

	// Two publishes at 20:00, one at 12:00 the next day.
	env.clk.Advance(8 * time.Hour)
	for _, contentID := range []string{"banner-1", "banner-2"} {
		sched := env.createSchedule(t, domain.CreateScheduleRequest{
			ContentType:   domain.ContentTypeBanner,
			ContentID:     contentID,
			ScheduledTime: env.clk.Now(),
		}, "")
		env.executeNow(t, sched.ID)
	}
	env.clk.Advance(16 * time.Hour)
	sched := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeBanner,
		ContentID:     "banner-3",
		ScheduledTime: env.clk.Now(),
	}, "")
	env.executeNow(t, sched.ID)

	env.clk.Advance(time.Hour)
	suggestions, err := env.stats.SuggestedTimes(context.Background(), domain.ContentTypeBanner)
	require.NoError(t, err)

	require.Len(t, suggestions, 2)
	assert.Equal(t, 20, suggestions[0].Hour)
	assert.Equal(t, 100.0, suggestions[0].Score)
	assert.Contains(t, suggestions[0].Reason, "evening prime time")
	assert.Equal(t, 12, suggestions[1].Hour)
	assert.Equal(t, 50.0, suggestions[1].Score)
	assert.Contains(t, suggestions[1].Reason, "lunch break peak")

	// Other content types are unaffected by banner history.
	suggestions, err = env.stats.SuggestedTimes(context.Background(), domain.ContentTypeVideo)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, 95.0, suggestions[0].Score)
}

func TestAnalyticsReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedBanner(t, "banner-1")
	env.seedBanner(t, "banner-2")

	for _, contentID := range []string{"banner-1", "banner-2"} {
		sched := env.createSchedule(t, domain.CreateScheduleRequest{
			ContentType:   domain.ContentTypeBanner,
			ContentID:     contentID,
			ScheduledTime: env.clk.Now(),
		}, "")
		env.executeNow(t, sched.ID)
	}

	// One permanently failed announcement.
	require.NoError(t, env.contents.CreateAnnouncement(ctx, announcementFixture("ann-1", env.clk.Now())))
	env.registry.Register(domain.ContentTypeAnnouncement, &stubExecutor{publishErr: errors.New("boom")})
	maxRetry := 1
	failed := env.createSchedule(t, domain.CreateScheduleRequest{
		ContentType:   domain.ContentTypeAnnouncement,
		ContentID:     "ann-1",
		ScheduledTime: env.clk.Now(),
		MaxRetry:      &maxRetry,
	}, "")
	ok, _, err := env.scheduler.Execute(ctx, failed.ID, "", false)
	require.NoError(t, err)
	require.False(t, ok)

	env.clk.Advance(time.Minute)
	report, err := env.stats.AnalyticsReport(ctx)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, report.SuccessRate, 0.0001)
	assert.EqualValues(t, 2, report.PublishedCount)
	assert.EqualValues(t, 1, report.FailedCount)
	assert.Equal(t, "immediate", report.BestStrategy)
	assert.InDelta(t, 2.0/3.0, report.StrategyRatios["immediate"], 0.0001)
	assert.Equal(t, []int{12}, report.PeakHours)

	require.Len(t, report.PublishTrend, 7)
	require.Len(t, report.TrendDays, 7)
	assert.Equal(t, "2026-06-10", report.TrendDays[6])
	var total int64
	for _, day := range report.PublishTrend {
		require.Len(t, day, 6)
		for _, bucket := range day {
			total += bucket
		}
	}
	assert.EqualValues(t, 2, total)
	// Both publishes landed today at noon: day index 6, bucket 12/4.
	assert.EqualValues(t, 2, report.PublishTrend[6][3])
}
