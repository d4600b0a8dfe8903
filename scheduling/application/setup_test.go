package application_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	contentDomain "github.com/contentops/scheduler/content/domain"
	contentRepository "github.com/contentops/scheduler/content/repository"
	"github.com/contentops/scheduler/pkg/clock"
	"github.com/contentops/scheduler/scheduling/application"
	"github.com/contentops/scheduler/scheduling/domain"
	schedRepository "github.com/contentops/scheduler/scheduling/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingSink captures notices for assertions.
type recordingSink struct {
	mu      sync.Mutex
	notices []domain.ScheduledContentNotice
}

func (s *recordingSink) NotifyScheduledContent(_ context.Context, n domain.ScheduledContentNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	return nil
}

func (s *recordingSink) all() []domain.ScheduledContentNotice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduledContentNotice, len(s.notices))
	copy(out, s.notices)
	return out
}

func (s *recordingSink) byAction(a domain.NotificationAction) []domain.ScheduledContentNotice {
	var out []domain.ScheduledContentNotice
	for _, n := range s.all() {
		if n.Action == a {
			out = append(out, n)
		}
	}
	return out
}

// stubExecutor is a configurable ContentExecutor for failure-path tests.
type stubExecutor struct {
	publishOK      bool
	publishErr     error
	unpublishOK    bool
	publishCalls   int64
	unpublishCalls int64
}

func (e *stubExecutor) Publish(_ context.Context, _ string) (bool, error) {
	atomic.AddInt64(&e.publishCalls, 1)
	return e.publishOK, e.publishErr
}

func (e *stubExecutor) Unpublish(_ context.Context, _ string) (bool, error) {
	atomic.AddInt64(&e.unpublishCalls, 1)
	return e.unpublishOK, nil
}

type testEnv struct {
	repo     *schedRepository.SchedulingGormRepository
	contents *contentRepository.ContentGormRepository
	registry *domain.ExecutorRegistry
	sink     *recordingSink
	clk      *clock.Fixed

	scheduler *application.SchedulingService
	templates *application.TemplateService
	stats     *application.StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// One connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	repo := schedRepository.NewSchedulingGormRepository(db)
	if err := repo.Init(ctx); err != nil {
		t.Fatalf("failed to init scheduling repo: %v", err)
	}
	contents := contentRepository.NewContentGormRepository(db)
	if err := contents.Init(ctx); err != nil {
		t.Fatalf("failed to init content repo: %v", err)
	}

	clk := clock.NewFixed(time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC))
	registry := domain.NewExecutorRegistry()
	sink := &recordingSink{}

	scheduler := application.NewSchedulingService(repo, contents, registry, sink, clk)
	templates := application.NewTemplateService(repo, scheduler, clk)
	stats := application.NewStatsService(repo, clk)

	return &testEnv{
		repo:      repo,
		contents:  contents,
		registry:  registry,
		sink:      sink,
		clk:       clk,
		scheduler: scheduler,
		templates: templates,
		stats:     stats,
	}
}

// seedBanner inserts a banner row and registers a succeeding stub executor
// for banners unless one is already registered.
func (env *testEnv) seedBanner(t *testing.T, id string) *stubExecutor {
	t.Helper()
	now := env.clk.Now()
	if err := env.contents.CreateBanner(context.Background(), bannerFixture(id, now)); err != nil {
		t.Fatalf("failed to seed banner: %v", err)
	}
	exec := &stubExecutor{publishOK: true, unpublishOK: true}
	env.registry.Register(domain.ContentTypeBanner, exec)
	return exec
}

func bannerFixture(id string, now time.Time) contentDomain.Banner {
	return contentDomain.Banner{
		ID:        id,
		Title:     "banner " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func videoFixture(id string, now time.Time) contentDomain.Video {
	return contentDomain.Video{
		ID:        id,
		Title:     "video " + id,
		Status:    contentDomain.VideoStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func announcementFixture(id string, now time.Time) contentDomain.Announcement {
	return contentDomain.Announcement{
		ID:        id,
		Title:     "announcement " + id,
		Body:      "body",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (env *testEnv) seedVideo(t *testing.T, id string) {
	t.Helper()
	if err := env.contents.CreateVideo(context.Background(), videoFixture(id, env.clk.Now())); err != nil {
		t.Fatalf("failed to seed video: %v", err)
	}
}

func (env *testEnv) createSchedule(t *testing.T, req domain.CreateScheduleRequest, actor string) domain.Schedule {
	t.Helper()
	sched, err := env.scheduler.Create(context.Background(), req, actor)
	if err != nil {
		t.Fatalf("failed to create schedule: %v", err)
	}
	return sched
}
