package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel is the GORM-specific struct for the 'devices' table.
// The primary key is the identifier generated by the agent.
type DeviceModel struct {
	ID        string    `gorm:"type:varchar(255);primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Kind      string    `gorm:"type:varchar(20);not null"`
	Platform  string    `gorm:"type:varchar(50);not null;default:unknown"`
	Online    bool      `gorm:"not null;default:false"`
	LastSeen  time.Time `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (DeviceModel) TableName() string {
	return "devices"
}
