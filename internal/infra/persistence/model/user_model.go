package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserModel mirrors the 'users' table. The list columns hold JSON arrays of lowercased strings.
type UserModel struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Email               string                      `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name                string                      `gorm:"type:varchar(100)"`
	PasswordHash        string                      `gorm:"type:varchar(255);not null"`
	BlockedWebsites     datatypes.JSONSlice[string] `gorm:"not null"`
	BlockedPackages     datatypes.JSONSlice[string] `gorm:"not null"`
	BlockedKeywords     datatypes.JSONSlice[string] `gorm:"not null"`
	WhitelistedWebsites datatypes.JSONSlice[string] `gorm:"not null"`
	WhitelistedPackages datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
