package model

import "time"

// Track is one piece of content distributed to the marketplace and the video platform.
// It has no status column; the lifecycle stage is derived from which fields are set.
type Track struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:36"`
	UserID             int64      `json:"id_user" gorm:"column:id_user;index;not null"`
	ProfileID          *string    `json:"id_profile" gorm:"column:id_profile;size:36;index"`
	Name               string     `json:"name" gorm:"size:255;not null"`
	PublishAt          *time.Time `json:"publish_at" gorm:"index"`
	BeatID             *string    `json:"id_beat" gorm:"column:id_beat;size:36"`
	ThumbnailID        *string    `json:"id_thumbnail" gorm:"column:id_thumbnail;size:36"`
	MarketplaceTrackID *string    `json:"beatstars_id_track" gorm:"column:beatstars_id_track;size:64"`
	ShareURL           *string    `json:"beatstars_url" gorm:"column:beatstars_url;size:512"`
	VideoURL           *string    `json:"yt_url" gorm:"column:yt_url;size:512"`
	ErrorMessage       *string    `json:"error_message" gorm:"type:text"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Beat      *Asset `json:"beat,omitempty" gorm:"foreignKey:BeatID"`
	Thumbnail *Asset `json:"thumbnail,omitempty" gorm:"foreignKey:ThumbnailID"`
}

func (Track) TableName() string {
	return "track"
}

// OwnedBy reports whether userID owns the track.
func (t *Track) OwnedBy(userID int64) bool {
	return t.UserID == userID
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr returns a pointer to s, or nil for the empty string.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
