package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Settings is a free-form string map persisted as a JSON column.
type Settings map[string]string

// Scan implements sql.Scanner.
func (s *Settings) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = Settings{}
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*s = Settings{}
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer.
func (s Settings) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// User is an account that owns profiles, assets and tracks.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string    `json:"email" gorm:"size:191;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password;size:255;not null"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	Settings     Settings  `json:"settings" gorm:"type:json"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserInfo is the account summary returned to the dashboard.
type UserInfo struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastPublishAt *time.Time `json:"last_publish_at"`
	Settings      Settings   `json:"settings"`
	Profiles      []Profile  `json:"profiles"`
}
