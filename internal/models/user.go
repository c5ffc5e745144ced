package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// JSONB Types for GORM
type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, m)
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// String returns the string stored under key, or "" when absent.
func (m JSONMap) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// User is the slice of a profile the moderation service cares about.
type User struct {
	ID       string `gorm:"size:64;primaryKey" json:"id"`
	Username string `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Role     Role   `gorm:"size:16;not null;default:'user';index" json:"role"`

	// Telegram chat used for moderation notices
	TelegramID *int64 `gorm:"index" json:"telegram_id,omitempty"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time      `gorm:"type:timestamptz;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"type:timestamptz;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate UUID if not present
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

func (u User) IsStaff() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}
