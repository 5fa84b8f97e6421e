package models

import (
	"time"

	"github.com/fabworks/fabshop-backend/pkg/enums"
)

// Order is a single fabrication job tracked through its lifecycle.
type Order struct {
	ID               int64           `gorm:"column:id;primaryKey"`
	UserID           int64           `gorm:"column:user_id;not null;index"`
	StatusID         int64           `gorm:"column:status_id;not null;index"`
	MaterialID       *int64          `gorm:"column:material_id"`
	OrderType        enums.OrderType `gorm:"column:order_type;type:text;not null;index"`
	PartName         string          `gorm:"column:part_name;not null"`
	Comment          *string         `gorm:"column:comment"`
	PhotoPath        *string         `gorm:"column:photo_path"`
	ModelPath        *string         `gorm:"column:model_path"`
	OriginalFilename string          `gorm:"column:original_filename;not null;default:''"`
	RejectionReason  *string         `gorm:"column:rejection_reason"`
	LastReminderAt   *time.Time      `gorm:"column:last_reminder_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`

	User     *User     `gorm:"foreignKey:UserID"`
	Status   *Status   `gorm:"foreignKey:StatusID"`
	Material *Material `gorm:"foreignKey:MaterialID"`
}

// StatusCode returns the preloaded status code, or empty when not loaded.
func (o Order) StatusCode() enums.StatusCode {
	if o.Status == nil {
		return ""
	}
	return o.Status.Code
}
