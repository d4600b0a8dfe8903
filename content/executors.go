// Package content wires the per-type publish/unpublish side effects behind
// the scheduler's ContentExecutor interface.
package content

import (
	"context"

	"github.com/contentops/scheduler/content/repository"
	"github.com/contentops/scheduler/pkg/clock"
	"github.com/contentops/scheduler/scheduling/domain"
)

// VideoExecutor publishes videos. Videos are never auto-expired, so
// Unpublish is deliberately a no-op that reports failure.
type VideoExecutor struct {
	repo *repository.ContentGormRepository
	clk  clock.Clock
}

func NewVideoExecutor(repo *repository.ContentGormRepository, clk clock.Clock) *VideoExecutor {
	return &VideoExecutor{repo: repo, clk: clk}
}

func (e *VideoExecutor) Publish(ctx context.Context, contentID string) (bool, error) {
	return e.repo.PublishVideo(ctx, contentID, e.clk.Now())
}

func (e *VideoExecutor) Unpublish(ctx context.Context, contentID string) (bool, error) {
	return false, nil
}

// BannerExecutor flips the banner active flag.
type BannerExecutor struct {
	repo *repository.ContentGormRepository
	clk  clock.Clock
}

func NewBannerExecutor(repo *repository.ContentGormRepository, clk clock.Clock) *BannerExecutor {
	return &BannerExecutor{repo: repo, clk: clk}
}

func (e *BannerExecutor) Publish(ctx context.Context, contentID string) (bool, error) {
	return e.repo.SetBannerActive(ctx, contentID, true, e.clk.Now())
}

func (e *BannerExecutor) Unpublish(ctx context.Context, contentID string) (bool, error) {
	return e.repo.SetBannerActive(ctx, contentID, false, e.clk.Now())
}

// AnnouncementExecutor flips the announcement active flag.
type AnnouncementExecutor struct {
	repo *repository.ContentGormRepository
	clk  clock.Clock
}

func NewAnnouncementExecutor(repo *repository.ContentGormRepository, clk clock.Clock) *AnnouncementExecutor {
	return &AnnouncementExecutor{repo: repo, clk: clk}
}

func (e *AnnouncementExecutor) Publish(ctx context.Context, contentID string) (bool, error) {
	return e.repo.SetAnnouncementActive(ctx, contentID, true, e.clk.Now())
}

func (e *AnnouncementExecutor) Unpublish(ctx context.Context, contentID string) (bool, error) {
	return e.repo.SetAnnouncementActive(ctx, contentID, false, e.clk.Now())
}

// RecommendationExecutor flips the recommendation slot active flag.
type RecommendationExecutor struct {
	repo *repository.ContentGormRepository
	clk  clock.Clock
}

func NewRecommendationExecutor(repo *repository.ContentGormRepository, clk clock.Clock) *RecommendationExecutor {
	return &RecommendationExecutor{repo: repo, clk: clk}
}

func (e *RecommendationExecutor) Publish(ctx context.Context, contentID string) (bool, error) {
	return e.repo.SetRecommendationActive(ctx, contentID, true, e.clk.Now())
}

func (e *RecommendationExecutor) Unpublish(ctx context.Context, contentID string) (bool, error) {
	return e.repo.SetRecommendationActive(ctx, contentID, false, e.clk.Now())
}

// NewRegistry builds the type→executor registry covering every content type.
func NewRegistry(repo *repository.ContentGormRepository, clk clock.Clock) *domain.ExecutorRegistry {
	reg := domain.NewExecutorRegistry()
	reg.Register(domain.ContentTypeVideo, NewVideoExecutor(repo, clk))
	reg.Register(domain.ContentTypeBanner, NewBannerExecutor(repo, clk))
	reg.Register(domain.ContentTypeAnnouncement, NewAnnouncementExecutor(repo, clk))
	reg.Register(domain.ContentTypeRecommendation, NewRecommendationExecutor(repo, clk))
	return reg
}
