package models

import (
	"time"

	"github.com/fabworks/fabshop-backend/pkg/enums"
)

// RejectionTemplate is staff-managed canned rejection text scoped to an
// order type. Unlike materials these are hard-deleted.
type RejectionTemplate struct {
	ID        int64           `gorm:"column:id;primaryKey"`
	OrderType enums.OrderType `gorm:"column:order_type;type:text;not null"`
	Text      string          `gorm:"column:text;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
