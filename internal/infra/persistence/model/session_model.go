package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionModel mirrors the 'sessions' table. The partial unique index allows at most
// one active session per user.
type SessionModel struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID                   `gorm:"type:uuid;not null;index:idx_sessions_user_id;uniqueIndex:idx_sessions_one_active,where:active = true"`
	Active              bool                        `gorm:"not null;default:false"`
	StartedAt           time.Time                   `gorm:"not null"`
	EndsAt              *time.Time                  `gorm:"index"`
	TargetAll           bool                        `gorm:"not null;default:false"`
	TargetDevices       datatypes.JSONSlice[string] `gorm:"not null"`
	BlockedWebsites     datatypes.JSONSlice[string] `gorm:"not null"`
	BlockedPackages     datatypes.JSONSlice[string] `gorm:"not null"`
	BlockedKeywords     datatypes.JSONSlice[string] `gorm:"not null"`
	WhitelistedWebsites datatypes.JSONSlice[string] `gorm:"not null"`
	WhitelistedPackages datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}
