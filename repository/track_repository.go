package repository

import (
	"context"
	"time"

	"bosko/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrackListOptions narrows ListByUser at the SQL level.
type TrackListOptions struct {
	PendingOnly   bool // yt_url IS NULL
	CompletedOnly bool // yt_url IS NOT NULL
}

// TrackRepository is the track data access interface.
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	// GetByID returns the track with Beat and Thumbnail preloaded, or nil when absent.
	GetByID(ctx context.Context, id string) (*model.Track, error)
	ListByUser(ctx context.Context, userID int64, opts TrackListOptions) ([]*model.Track, error)
	ListPending(ctx context.Context, userID int64, limit int) ([]*model.Track, error)
	// Update writes the given columns of one track row.
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	LastPublishAt(ctx context.Context, userID int64) (*time.Time, error)
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a gorm-backed TrackRepository.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Omit("Beat", "Thumbnail").Create(track).Error
}

func (r *gormTrackRepository) GetByID(ctx context.Context, id string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Preload("Beat").
		Preload("Thumbnail").
		Where("id = ?", id).
		First(&track).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &track, nil
}

func (r *gormTrackRepository) ListByUser(ctx context.Context, userID int64, opts TrackListOptions) ([]*model.Track, error) {
	q := r.db.WithContext(ctx).
		Preload("Beat").
		Preload("Thumbnail").
		Where("id_user = ?", userID)
	if opts.PendingOnly {
		q = q.Where("yt_url IS NULL")
	}
	if opts.CompletedOnly {
		q = q.Where("yt_url IS NOT NULL")
	}

	var tracks []*model.Track
	err := q.Order("created_at DESC").Find(&tracks).Error
	return tracks, err
}

// ListPending returns unfinished tracks, oldest first. userID 0 means every user.
func (r *gormTrackRepository) ListPending(ctx context.Context, userID int64, limit int) ([]*model.Track, error) {
	q := r.db.WithContext(ctx).
		Preload("Beat").
		Preload("Thumbnail").
		Where("yt_url IS NULL").
		Where("id_beat IS NOT NULL AND id_thumbnail IS NOT NULL")
	if userID != 0 {
		q = q.Where("id_user = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var tracks []*model.Track
	err := q.Order("created_at ASC").Find(&tracks).Error
	return tracks, err
}

func (r *gormTrackRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *gormTrackRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Track{}).Error
}

func (r *gormTrackRepository) LastPublishAt(ctx context.Context, userID int64) (*time.Time, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Select("publish_at").
		Where("id_user = ? AND publish_at IS NOT NULL", userID).
		Order("publish_at DESC").
		Take(&track).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return track.PublishAt, nil
}
