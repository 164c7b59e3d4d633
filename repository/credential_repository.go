package repository

import (
	"context"

	"bosko/model"

	"gorm.io/gorm"
)

// CredentialRepository stores OAuth refresh credentials.
type CredentialRepository interface {
	Create(ctx context.Context, cred *model.OAuthCredential) error
	GetByID(ctx context.Context, id int64) (*model.OAuthCredential, error)
	// FindByUser returns the most recently updated credential of the user on platform, or nil.
	FindByUser(ctx context.Context, userID int64, platform model.Platform) (*model.OAuthCredential, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.OAuthCredential, error)
	UpdateRefreshToken(ctx context.Context, id int64, refreshToken string) error
}

type gormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a gorm-backed CredentialRepository.
func NewGormCredentialRepository(db *gorm.DB) CredentialRepository {
	return &gormCredentialRepository{db: db}
}

func (r *gormCredentialRepository) Create(ctx context.Context, cred *model.OAuthCredential) error {
	return r.db.WithContext(ctx).Create(cred).Error
}

func (r *gormCredentialRepository) GetByID(ctx context.Context, id int64) (*model.OAuthCredential, error) {
	var cred model.OAuthCredential
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cred).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *gormCredentialRepository) FindByUser(ctx context.Context, userID int64, platform model.Platform) (*model.OAuthCredential, error) {
	var cred model.OAuthCredential
	err := r.db.WithContext(ctx).
		Where("id_user = ? AND platform = ?", userID, platform).
		Order("updated_at DESC").
		Take(&cred).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *gormCredentialRepository) ListByUser(ctx context.Context, userID int64) ([]*model.OAuthCredential, error) {
	var creds []*model.OAuthCredential
	err := r.db.WithContext(ctx).Where("id_user = ?", userID).Order("id ASC").Find(&creds).Error
	return creds, err
}

func (r *gormCredentialRepository) UpdateRefreshToken(ctx context.Context, id int64, refreshToken string) error {
	return r.db.WithContext(ctx).Model(&model.OAuthCredential{}).
		Where("id = ?", id).
		Update("refresh_token", refreshToken).Error
}
