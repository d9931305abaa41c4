package models

import "time"

// BaseModel is gorm.Model without DeletedAt: every delete is physical.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
