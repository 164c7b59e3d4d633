package repository

import (
	"context"

	"bosko/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetRepository is the asset data access interface.
type AssetRepository interface {
	Create(ctx context.Context, asset *model.Asset) error
	GetByID(ctx context.Context, id string) (*model.Asset, error)
	ListByUser(ctx context.Context, userID int64, assetType model.AssetType) ([]*model.Asset, error)
	SetMarketplaceID(ctx context.Context, id, marketplaceID string) error
	Delete(ctx context.Context, id string) error
	// Unlink clears any track reference to the asset.
	Unlink(ctx context.Context, id string) error
}

type gormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a gorm-backed AssetRepository.
func NewGormAssetRepository(db *gorm.DB) AssetRepository {
	return &gormAssetRepository{db: db}
}

func (r *gormAssetRepository) Create(ctx context.Context, asset *model.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *gormAssetRepository) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	var asset model.Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (r *gormAssetRepository) ListByUser(ctx context.Context, userID int64, assetType model.AssetType) ([]*model.Asset, error) {
	q := r.db.WithContext(ctx).Where("id_user = ?", userID)
	if assetType != "" {
		q = q.Where("type = ?", assetType)
	}
	var assets []*model.Asset
	err := q.Order("created_at DESC").Find(&assets).Error
	return assets, err
}

func (r *gormAssetRepository) SetMarketplaceID(ctx context.Context, id, marketplaceID string) error {
	return r.db.WithContext(ctx).Model(&model.Asset{}).
		Where("id = ?", id).
		Update("beatstars_id", marketplaceID).Error
}

func (r *gormAssetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Asset{}).Error
}

func (r *gormAssetRepository) Unlink(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Track{}).Where("id_beat = ?", id).Update("id_beat", nil).Error; err != nil {
			return err
		}
		return tx.Model(&model.Track{}).Where("id_thumbnail = ?", id).Update("id_thumbnail", nil).Error
	})
}
