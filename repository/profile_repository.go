package repository

import (
	"context"

	"bosko/core/apperr"
	"bosko/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepository manages profiles and their platform connections.
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	// GetByID returns the profile with Connections preloaded, or nil when absent.
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Profile, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// Delete removes the profile and its connections.
	Delete(ctx context.Context, id string) error

	CreateConnection(ctx context.Context, conn *model.ProfileConnection) error
	GetConnection(ctx context.Context, profileID string, platform model.Platform) (*model.ProfileConnection, error)
	UpdateConnection(ctx context.Context, profileID string, platform model.Platform, fields map[string]interface{}) error
	DeleteConnection(ctx context.Context, profileID string, platform model.Platform) error
}

type gormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a gorm-backed ProfileRepository.
func NewGormProfileRepository(db *gorm.DB) ProfileRepository {
	return &gormProfileRepository{db: db}
}

func (r *gormProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.Settings == nil {
		profile.Settings = model.Settings{}
	}
	return r.db.WithContext(ctx).Omit("Connections").Create(profile).Error
}

func (r *gormProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Preload("Connections").
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *gormProfileRepository) ListByUser(ctx context.Context, userID int64) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Preload("Connections").
		Where("id_user = ?", userID).
		Order("created_at ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *gormProfileRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *gormProfileRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id_profile = ?", id).Delete(&model.ProfileConnection{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Profile{}).Error
	})
}

func (r *gormProfileRepository) CreateConnection(ctx context.Context, conn *model.ProfileConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Create(conn).Error
	if IsDuplicate(err) {
		return apperr.Validation("profile already has a %s connection", conn.Platform)
	}
	return err
}

func (r *gormProfileRepository) GetConnection(ctx context.Context, profileID string, platform model.Platform) (*model.ProfileConnection, error) {
	var conn model.ProfileConnection
	err := r.db.WithContext(ctx).
		Where("id_profile = ? AND platform = ?", profileID, platform).
		First(&conn).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (r *gormProfileRepository) UpdateConnection(ctx context.Context, profileID string, platform model.Platform, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.ProfileConnection{}).
		Where("id_profile = ? AND platform = ?", profileID, platform).
		Updates(fields).Error
}

func (r *gormProfileRepository) DeleteConnection(ctx context.Context, profileID string, platform model.Platform) error {
	return r.db.WithContext(ctx).
		Where("id_profile = ? AND platform = ?", profileID, platform).
		Delete(&model.ProfileConnection{}).Error
}
