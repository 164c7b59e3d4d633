package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Platform identifies an external distribution platform.
type Platform string

const (
	PlatformBeatstars Platform = "BEATSTARS"
	PlatformYouTube   Platform = "YOUTUBE"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return p == PlatformBeatstars || p == PlatformYouTube
}

// ConnectionMeta holds per-platform publishing defaults. BEATSTARS connections
// use Tags, Genres, BPM and MemberID; YOUTUBE connections use Description.
type ConnectionMeta struct {
	MemberID    string   `json:"member_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	BPM         string   `json:"bpm,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Scan implements sql.Scanner.
func (m *ConnectionMeta) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = ConnectionMeta{}
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*m = ConnectionMeta{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer.
func (m ConnectionMeta) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Profile groups platform connections under one artist identity.
type Profile struct {
	ID          string              `json:"id" gorm:"primaryKey;size:36"`
	UserID      int64               `json:"id_user" gorm:"column:id_user;index;not null"`
	Name        string              `json:"name" gorm:"size:191;not null"`
	Settings    Settings            `json:"settings" gorm:"type:json"`
	Connections []ProfileConnection `json:"connections" gorm:"foreignKey:ProfileID"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Connection returns the profile's connection for platform, if any.
func (p *Profile) Connection(platform Platform) *ProfileConnection {
	for i := range p.Connections {
		if p.Connections[i].Platform == platform {
			return &p.Connections[i]
		}
	}
	return nil
}

// ProfileConnection binds a profile to one OAuth credential on one platform.
type ProfileConnection struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	ProfileID string         `json:"id_profile" gorm:"column:id_profile;size:36;not null;uniqueIndex:idx_profile_platform"`
	Platform  Platform       `json:"platform" gorm:"size:20;not null;uniqueIndex:idx_profile_platform"`
	OAuthID   int64          `json:"id_oauth" gorm:"column:id_oauth;not null"`
	Meta      ConnectionMeta `json:"meta" gorm:"type:json"`
	CreatedAt time.Time      `json:"created_at"`
}

func (ProfileConnection) TableName() string {
	return "profile_connections"
}
