package repository

import (
	"context"
	"time"

	contentDomain "github.com/contentops/scheduler/content/domain"
	schedDomain "github.com/contentops/scheduler/scheduling/domain"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type videoModel struct {
	ID          string     `gorm:"primaryKey;column:id"`
	Title       string     `gorm:"column:title;not null"`
	Status      string     `gorm:"column:status;default:'draft';index"`
	PublishedAt *time.Time `gorm:"column:published_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
}

func (videoModel) TableName() string { return "videos" }

type bannerModel struct {
	ID        string    `gorm:"primaryKey;column:id"`
	Title     string    `gorm:"column:title;not null"`
	ImageURL  string    `gorm:"column:image_url"`
	IsActive  bool      `gorm:"column:is_active;default:false;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (bannerModel) TableName() string { return "banners" }

type announcementModel struct {
	ID        string    `gorm:"primaryKey;column:id"`
	Title     string    `gorm:"column:title;not null"`
	Body      string    `gorm:"column:body"`
	IsActive  bool      `gorm:"column:is_active;default:false;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (announcementModel) TableName() string { return "announcements" }

type recommendationModel struct {
	ID        string    `gorm:"primaryKey;column:id"`
	Title     string    `gorm:"column:title;not null"`
	Slot      int       `gorm:"column:slot;default:0"`
	IsActive  bool      `gorm:"column:is_active;default:false;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (recommendationModel) TableName() string { return "recommendations" }

// --- Repository Implementation ---

// ContentGormRepository gives the scheduling engine its view of the content
// tables: existence checks plus the publish/unpublish flag flips. Full CRUD
// of these entities belongs to the (external) admin layer.
type ContentGormRepository struct {
	db *gorm.DB
}

func NewContentGormRepository(db *gorm.DB) *ContentGormRepository {
	return &ContentGormRepository{db: db}
}

func (r *ContentGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&videoModel{},
		&bannerModel{},
		&announcementModel{},
		&recommendationModel{},
	)
}

func (r *ContentGormRepository) model(ct schedDomain.ContentType) interface{} {
	switch ct {
	case schedDomain.ContentTypeVideo:
		return &videoModel{}
	case schedDomain.ContentTypeBanner:
		return &bannerModel{}
	case schedDomain.ContentTypeAnnouncement:
		return &announcementModel{}
	case schedDomain.ContentTypeRecommendation:
		return &recommendationModel{}
	}
	return nil
}

func (r *ContentGormRepository) Exists(ctx context.Context, ct schedDomain.ContentType, contentID string) (bool, error) {
	m := r.model(ct)
	if m == nil {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(m).Where("id = ?", contentID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PublishVideo marks the video published and stamps published_at. A missing
// row yields (false, nil) so the caller can route it through the retry path.
func (r *ContentGormRepository) PublishVideo(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&videoModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       string(contentDomain.VideoStatusPublished),
			"published_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *ContentGormRepository) SetBannerActive(ctx context.Context, id string, active bool, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&bannerModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": at})
	return res.RowsAffected > 0, res.Error
}

func (r *ContentGormRepository) SetAnnouncementActive(ctx context.Context, id string, active bool, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&announcementModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": at})
	return res.RowsAffected > 0, res.Error
}

func (r *ContentGormRepository) SetRecommendationActive(ctx context.Context, id string, active bool, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&recommendationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": at})
	return res.RowsAffected > 0, res.Error
}

// Seed helpers used by the migration command and tests.

func (r *ContentGormRepository) CreateVideo(ctx context.Context, v contentDomain.Video) error {
	m := videoModel{ID: v.ID, Title: v.Title, Status: string(v.Status), PublishedAt: v.PublishedAt, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ContentGormRepository) GetVideo(ctx context.Context, id string) (contentDomain.Video, error) {
	var m videoModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return contentDomain.Video{}, err
	}
	return contentDomain.Video{ID: m.ID, Title: m.Title, Status: contentDomain.VideoStatus(m.Status), PublishedAt: m.PublishedAt, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}, nil
}

func (r *ContentGormRepository) CreateBanner(ctx context.Context, b contentDomain.Banner) error {
	m := bannerModel{ID: b.ID, Title: b.Title, ImageURL: b.ImageURL, IsActive: b.IsActive, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ContentGormRepository) GetBanner(ctx context.Context, id string) (contentDomain.Banner, error) {
	var m bannerModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return contentDomain.Banner{}, err
	}
	return contentDomain.Banner{ID: m.ID, Title: m.Title, ImageURL: m.ImageURL, IsActive: m.IsActive, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}, nil
}

func (r *ContentGormRepository) CreateAnnouncement(ctx context.Context, a contentDomain.Announcement) error {
	m := announcementModel{ID: a.ID, Title: a.Title, Body: a.Body, IsActive: a.IsActive, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ContentGormRepository) CreateRecommendation(ctx context.Context, rec contentDomain.Recommendation) error {
	m := recommendationModel{ID: rec.ID, Title: rec.Title, Slot: rec.Slot, IsActive: rec.IsActive, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ContentGormRepository) GetRecommendation(ctx context.Context, id string) (contentDomain.Recommendation, error) {
	var m recommendationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return contentDomain.Recommendation{}, err
	}
	return contentDomain.Recommendation{ID: m.ID, Title: m.Title, Slot: m.Slot, IsActive: m.IsActive, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}, nil
}
