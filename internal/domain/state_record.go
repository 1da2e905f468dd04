package domain

import (
	"time"

	"gorm.io/datatypes"
)

// StateRecord is the durable SQL copy of a user's persisted design state.
type StateRecord struct {
	ID        uint           `gorm:"primaryKey"`
	UserID    uint           `gorm:"uniqueIndex:idx_state_user;not null"`
	Slot      string         `gorm:"type:varchar(191);not null"`
	Version   int            `gorm:"not null"`
	Data      datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}
