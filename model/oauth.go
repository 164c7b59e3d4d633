package model

import "time"

// OAuthCredential stores the long-lived refresh credential for one platform account.
type OAuthCredential struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       int64     `json:"id_user" gorm:"column:id_user;index:idx_oauth_user_platform;not null"`
	Platform     Platform  `json:"platform" gorm:"size:20;index:idx_oauth_user_platform;not null"`
	Label        string    `json:"label" gorm:"size:191"`
	ClientID     string    `json:"-" gorm:"size:255"`
	ClientSecret string    `json:"-" gorm:"size:255"`
	RefreshToken string    `json:"-" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (OAuthCredential) TableName() string {
	return "oauth"
}
