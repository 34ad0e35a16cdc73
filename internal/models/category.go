package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups products in the storefront.
type Category struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string         `json:"name" gorm:"type:varchar(100);uniqueIndex;not null" validate:"required,min=2,max=100"`
	Description string         `json:"description" gorm:"type:varchar(500)" validate:"omitempty,max=500"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
