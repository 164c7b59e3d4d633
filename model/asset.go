package model

import "time"

// AssetType distinguishes audio beats from cover images.
type AssetType string

const (
	AssetBeat      AssetType = "BEAT"
	AssetThumbnail AssetType = "THUMBNAIL"
)

// Valid reports whether t is a known asset type.
func (t AssetType) Valid() bool {
	return t == AssetBeat || t == AssetThumbnail
}

// KeyPrefix is the storage folder for assets of this type.
func (t AssetType) KeyPrefix() string {
	if t == AssetThumbnail {
		return "thumbnails"
	}
	return "beats"
}

// Asset is one stored binary file. StorageKey never changes after creation;
// MarketplaceID is set once the file has been uploaded to the marketplace.
type Asset struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	UserID        int64     `json:"id_user" gorm:"column:id_user;index;not null"`
	ProfileID     *string   `json:"id_profile" gorm:"column:id_profile;size:36;index"`
	Name          string    `json:"name" gorm:"size:255;not null"`
	Type          AssetType `json:"type" gorm:"size:20;not null"`
	StorageKey    string    `json:"s3_key" gorm:"column:s3_key;size:512;not null"`
	MimeType      string    `json:"mime_type" gorm:"size:100"`
	MarketplaceID *string   `json:"beatstars_id" gorm:"column:beatstars_id;size:64"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Asset) TableName() string {
	return "asset"
}

// Uploaded reports whether the asset already carries a marketplace id.
func (a *Asset) Uploaded() bool {
	return a != nil && a.MarketplaceID != nil && *a.MarketplaceID != ""
}
